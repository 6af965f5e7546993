package common

// PanicIfErr panics if err is non-nil. Used at wiring sites where a failure
// means the process cannot continue, mirroring the teacher's own
// catalog/persistent_catalog.go use of the same helper.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}
