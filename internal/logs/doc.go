// Package logs reads the JSON log files written under paths.log_dir.
//
// Latest picks the newest trueedits-*.log file. Tail returns its last lines
// and the byte offset after them, and Follow keeps reading from that offset
// until the context ends. `trueedits logs` is built on these helpers.
package logs
