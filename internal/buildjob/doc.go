// Package buildjob models one video moving through the build pipeline.
//
// A Job owns a temp directory under the work root named after the video's
// stem, and every intermediate it writes there is stem-qualified so jobs
// sharing the root never collide. Stages advance Job.Current as they
// produce new artifacts. Cleanup removes the temp directory exactly once,
// retrying when an exiting process still holds a file open.
package buildjob
