package license

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDurationSpec(t *testing.T) {
	tests := []struct {
		spec     string
		want     time.Duration
		lifetime bool
		wantErr  bool
	}{
		{spec: "", lifetime: true},
		{spec: "0", lifetime: true},
		{spec: "0d", lifetime: true},
		{spec: "30s", want: 30 * time.Second},
		{spec: "15m", want: 15 * time.Minute},
		{spec: "12h", want: 12 * time.Hour},
		{spec: "2d", want: 48 * time.Hour},
		{spec: "1y", want: 365 * 24 * time.Hour},
		{spec: "d", wantErr: true},
		{spec: "5", wantErr: true},
		{spec: "5w", wantErr: true},
		{spec: "-3d", wantErr: true},
		{spec: "3 d", wantErr: true},
		{spec: "abc", wantErr: true},
		{spec: "1.5h", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseDurationSpec(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			if tt.lifetime {
				assert.Nil(t, got)
				return
			}
			assert.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}
