// Package workflow sequences a bootstick run.
//
// The Controller resolves the image and target device, warns about
// implausibly small images, asks the operator to confirm the erase, then
// formats the device, mounts the image, transfers the payload and tears
// down. Each step runs as a named stage so its log lines carry the stage and
// the run's run_id. A fatal error stops the sequence at once; teardown only
// touches state that earlier stages established.
//
// Collaborators are injected through Collaborators, so tests drive the full
// sequence with in-memory fakes and scripted prompt answers.
package workflow
