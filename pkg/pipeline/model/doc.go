// Package model provides the data structures shared by the pipeline package and its options.
// It defines the stage details handed to options and the hooks an option implements
// to observe a pipeline run.
package model
