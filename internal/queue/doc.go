// Package queue persists batch runs and their build jobs in SQLite.
//
// Every `trueedits build` invocation records a run row and one job row per
// input video. Jobs track the pipeline stage they reached, the final
// artifact and the failure message so `trueedits history` can report on
// past batches. Rows left in the running state by a killed process are
// swept by MarkInterrupted when the next batch opens the store.
//
// The schema version lives in SQLite's user_version pragma. Open refuses a
// database stamped with a different version.
package queue
