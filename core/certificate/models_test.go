package certificate

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name    string
		want    Parsed
		wantErr bool
	}{
		{name: "STU001_S4_sports.pdf", want: Parsed{StudentID: "STU001", ClassID: "S4", Rest: []string{"sports"}}},
		{name: "STU001_S4.pdf", want: Parsed{StudentID: "STU001", ClassID: "S4", Rest: []string{}}},
		{name: "STU001_S4_day_1.final.pdf", want: Parsed{StudentID: "STU001", ClassID: "S4", Rest: []string{"day", "1"}}},
		{name: "STU001_S4", want: Parsed{StudentID: "STU001", ClassID: "S4", Rest: []string{}}},
		{name: "sports.pdf", wantErr: true},
		{name: "STU001.S4_sports.pdf", wantErr: true},
		{name: "STU001_.pdf", want: Parsed{StudentID: "STU001", ClassID: "", Rest: []string{}}},
		{name: "_S4.pdf", want: Parsed{StudentID: "", ClassID: "S4", Rest: []string{}}},
		{name: "STU001__sports.pdf", want: Parsed{StudentID: "STU001", ClassID: "", Rest: []string{"sports"}}},
		{name: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFilename(tt.name)
			if tt.wantErr {
				assert.Equal(t, FilenameError{Filename: tt.name}, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFilenames(t *testing.T) {
	parsed, err := ParseFilenames([]string{"STU001_S4_a.pdf", "STU002_S4_b.pdf"})
	assert.NoError(t, err)
	assert.Len(t, parsed, 2)

	_, err = ParseFilenames([]string{"STU001_S4_a.pdf", "b.pdf", "c.pdf"})
	assert.EqualError(t, err, `Filename "b.pdf" must be in format: studentId_classId_anything.pdf`)
	assert.True(t, IsFilenameError(errors.Wrap(err, "parsing")))
	assert.False(t, IsFilenameError(ErrNoFiles))
}
