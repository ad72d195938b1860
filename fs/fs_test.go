package appfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFS(t *testing.T) {
	for _, name := range []string{
		"migrations/00001_init.sql",
		"assets/templates/email/_base.txt",
		"assets/templates/email/_base.gohtml",
		"assets/templates/email/duty_assigned.txt",
		"assets/templates/email/duty_assigned.gohtml",
	} {
		_, err := fs.Stat(FS, name)
		assert.NoError(t, err, name)
	}

	layouts, err := fs.Glob(FS, "assets/templates/email/_*")
	require.NoError(t, err)
	assert.Len(t, layouts, 2)
}
