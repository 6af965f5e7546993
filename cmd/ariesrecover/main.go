// Command ariesrecover is a small demonstration driver for the recovery
// core: it opens a storage engine, runs a handful of transactions through
// it, takes a checkpoint, and replays recovery against the durable log it
// produced. Mirrors the shape of the teacher's main.go/demo.go - a
// throwaway driver exercising the package wiring, not a production tool.
package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ariesdb/common"
	"ariesdb/recovery"
	"ariesdb/storage"
	"ariesdb/transaction"
)

func main() {
	dir := flag.String("dir", "ariesdb-data", "directory to store pages, log segments, and the master record in")
	serve := flag.Bool("serve", false, "after the demo, keep running and take a fuzzy checkpoint every -checkpoint-interval until interrupted")
	checkpointInterval := flag.Duration("checkpoint-interval", common.DefaultCheckpointInterval, "period between automatic fuzzy checkpoints in -serve mode")
	flag.Parse()

	logger := log.New(os.Stdout, "ariesrecover: ", log.LstdFlags)

	common.PanicIfErr(os.MkdirAll(*dir, 0755))

	engine, err := storage.Open(*dir, logger)
	if err != nil {
		logger.Fatalf("open storage engine: %v", err)
	}
	defer engine.Close()

	mgr := recovery.NewManager(logger)
	mgr.SetStorageEngine(engine)

	page := engine.NewPage()

	const txA transaction.TxnID = 1
	const txB transaction.TxnID = 2

	lsn1 := mgr.Write(txA, page.PageID, 0, []byte("hello"), make([]byte, 5))
	logger.Printf("txn %d wrote lsn %d", txA, lsn1)

	lsn2 := mgr.Write(txB, page.PageID, 8, []byte("world"), make([]byte, 5))
	logger.Printf("txn %d wrote lsn %d", txB, lsn2)

	if err := mgr.Commit(txA); err != nil {
		logger.Fatalf("commit txn %d: %v", txA, err)
	}

	if err := mgr.Checkpoint(); err != nil {
		logger.Fatalf("checkpoint: %v", err)
	}

	if err := mgr.Abort(txB); err != nil {
		logger.Fatalf("abort txn %d: %v", txB, err)
	}

	rawLog, err := engine.GetLog()
	if err != nil {
		logger.Fatalf("read durable log: %v", err)
	}

	recoveryMgr := recovery.NewManager(logger)
	recoveryMgr.SetStorageEngine(engine)
	if err := recoveryMgr.Recover(rawLog); err != nil {
		logger.Fatalf("recover: %v", err)
	}

	logger.Printf("recovery completed against %s", *dir)

	if *serve {
		runCheckpointRoutine(mgr, logger, *checkpointInterval)
	}
}

// runCheckpointRoutine takes a fuzzy checkpoint every interval until
// interrupted, mirroring the teacher's DB.StartCheckpointRoutine: a
// time.After/select loop that logs each checkpoint and stops cleanly
// instead of running detached forever. mgr must not be used by any other
// goroutine while this runs - the recovery core is single-writer.
func runCheckpointRoutine(mgr *recovery.Manager, logger *log.Logger, interval time.Duration) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	logger.Printf("serving: checkpointing every %s, ctrl-C to stop", interval)
	for {
		select {
		case <-time.After(interval):
			if err := mgr.Checkpoint(); err != nil {
				logger.Printf("checkpoint failed: %v", err)
				continue
			}
			logger.Println("checkpoint taken")
		case <-sig:
			logger.Println("stopped checkpoint routine")
			return
		}
	}
}
