// Package stage defines the contract between the workflow manager and the
// pipeline stages.
//
// Each stage is a Handler strategy selected by configuration: captions,
// end card, audio and finalize. Stages mutate the buildjob.Job they are
// given and report readiness through HealthCheck.
package stage
