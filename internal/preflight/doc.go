// Package preflight provides readiness checks for the directories and
// external executables trueedits depends on.
//
// These checks run in two contexts:
//   - The workflow manager calls RunAll before a batch starts. If any check
//     fails, the batch is rejected before a temp directory is created.
//   - The CLI "trueedits status" command uses CheckSystemDeps and the
//     individual check functions to display tool and directory health.
package preflight
