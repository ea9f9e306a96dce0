package values_test

import (
	"errors"
	"testing"

	"github.com/mpm-dev/mpm/plugin/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArtifactFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename    string
		wantName    string
		wantVersion string
		wantErr     bool
	}{
		{filename: "foo-1.0.0.jar", wantName: "foo", wantVersion: "1.0.0"},
		{filename: "/srv/repo/foo-1.2.jar", wantName: "foo", wantVersion: "1.2.0"},
		{filename: "world-edit-7.3.jar", wantName: "world-edit", wantVersion: "7.3.0"},
		{filename: "foo-2-1.0.jar", wantName: "foo-2", wantVersion: "1.0.0"},
		{filename: "foo-1.2.3-beta.jar", wantName: "foo", wantVersion: "1.2.3-beta"},
		{filename: "Essentials-2.19-SNAPSHOT.jar", wantName: "Essentials", wantVersion: "2.19.0-SNAPSHOT"},
		{filename: "foo.jar", wantErr: true},
		{filename: "foo-1.0.0.zip", wantErr: true},
		{filename: "README", wantErr: true},
		{filename: "foo-1.2.3.4.jar", wantName: "foo", wantVersion: "1.2.3+4"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()
			name, version, err := values.ParseArtifactFilename(tt.filename)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, name)
			assert.Equal(t, tt.wantVersion, version.String())
		})
	}
}

func TestParseArtifactFilename_ErrorKinds(t *testing.T) {
	t.Parallel()

	_, _, err := values.ParseArtifactFilename("foo.jar")
	var fnErr *values.FilenameParseError
	assert.True(t, errors.As(err, &fnErr))

	_, _, err = values.ParseArtifactFilename("foo-99999999999999999999.0.jar")
	var coerceErr *values.VersionCoercionError
	assert.True(t, errors.As(err, &coerceErr))
}

func TestArtifactNaming(t *testing.T) {
	t.Parallel()

	v := values.MustCoerceVersion("1.2")
	assert.Equal(t, "foo-1.2.0.jar", values.ArtifactFilename("foo", v))
	assert.Equal(t, "foo.jar", values.LinkName("foo"))
	assert.Equal(t, "versions/foo-1.2.0.jar", values.LinkTarget("foo", v))
	assert.True(t, values.IsJar("foo.jar"))
	assert.False(t, values.IsJar("foo.txt"))

	four := values.MustCoerceVersion("1.2.3.4")
	filename := values.ArtifactFilename("foo", four)
	assert.Equal(t, "foo-1.2.3+4.jar", filename)
	name, parsed, err := values.ParseArtifactFilename(filename)
	require.NoError(t, err)
	assert.Equal(t, "foo", name)
	assert.True(t, parsed.Equals(four))
}
