// Package pipeline provides a sequencer for stages backed by external programs.
//
// A pipeline is an ordered list of stages. Each stage either runs an external program with a fixed
// argument list in a working directory, or runs an in-process function. Stages run one after the
// other, in the order they were added, and each one runs exactly once per run. The pipeline stops
// on the first failing stage: the stages that follow it never run.
//
// Stages hand information to the stages that follow through environment pointers. A stage declares
// the variables it exports, and those variables are added to the environment of every later stage
// once the exporting stage has succeeded. A failed stage never publishes its exports.
//
// Options implementing model.PipelineOption observe the run: they are notified when a stage is
// added, when it finishes and when the run ends. The drawer, measure and logging subpackages
// provide such options.
package pipeline
