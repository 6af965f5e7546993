package common

import "time"

// DefaultCheckpointInterval is the period between automatic fuzzy
// checkpoints, matching the teacher's db.checkpointInterval constant.
const DefaultCheckpointInterval = time.Second * 10
