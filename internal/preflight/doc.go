// Package preflight provides readiness checks for the tools, directories and
// platform bootstick depends on.
//
// These checks run in two contexts:
//   - The run controller calls RunAll before resolving inputs. A failed
//     required check aborts the run before any device is touched.
//   - The CLI "bootstick status" command renders every result, including
//     optional ones, so operators can fix their setup ahead of time.
package preflight
