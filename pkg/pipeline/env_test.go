package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/xdp/pkg/pipeline"
)

func TestEnvEnviron(t *testing.T) {
	t.Parallel()

	env := pipeline.NewEnv()
	env.Set("SAS_ODF", "/odf")
	env.Set("SAS_CCF", "/ccf/ccf.cif")

	got := env.Environ([]string{"PATH=/usr/bin", "SAS_ODF=/stale", "MALFORMED"})
	assert.Equal(t, []string{"PATH=/usr/bin", "MALFORMED", "SAS_CCF=/ccf/ccf.cif", "SAS_ODF=/odf"}, got)
	assert.Equal(t, []string{"SAS_CCF", "SAS_ODF"}, env.Keys())
}

func TestEnvClone(t *testing.T) {
	t.Parallel()

	env := pipeline.NewEnv()
	env.Set("A", "1")

	clone := env.Clone()
	clone.Set("A", "2")
	clone.Set("B", "3")

	got, _ := env.Get("A")
	assert.Equal(t, "1", got)

	_, ok := env.Get("B")
	assert.False(t, ok)
}
