package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-d", "-t", "-r"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate values kept, foreign flags dropped",
			args:    []string{"-a", ":50051", "-c", "conf.json", "-d", "postgres://x"},
			allowed: serverFlags,
			want:    []string{"-a", ":50051", "-d", "postgres://x"},
		},
		{
			name:    "equals form",
			args:    []string{"-t=15m", "-x=1"},
			allowed: serverFlags,
			want:    []string{"-t=15m"},
		},
		{
			name:    "value starting with dash is not consumed",
			args:    []string{"-a", "-d", "dsn"},
			allowed: serverFlags,
			want:    []string{"-a", "-d", "dsn"},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-r"},
			allowed: serverFlags,
			want:    []string{"-r"},
		},
		{
			name:    "positional arguments ignored",
			args:    []string{"serve", "now"},
			allowed: serverFlags,
			want:    []string{},
		},
		{
			name:    "equals value may look like a flag",
			args:    []string{"-config=--odd.json"},
			allowed: []string{"-config"},
			want:    []string{"-config=--odd.json"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-c", "one.json", "-c", "two.json"},
			allowed: []string{"-c"},
			want:    []string{"-c", "one.json", "-c", "two.json"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short form", func(t *testing.T) {
		os.Args = []string{"gophauth", "-a", ":1", "-c", "/etc/gophauth.json"}
		assert.Equal(t, "/etc/gophauth.json", JsonConfigFlags())
	})

	t.Run("long form", func(t *testing.T) {
		os.Args = []string{"gophauth", "-config=/etc/alt.json"}
		assert.Equal(t, "/etc/alt.json", JsonConfigFlags())
	})

	t.Run("absent", func(t *testing.T) {
		os.Args = []string{"gophauth", "-a", ":1"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("last one wins", func(t *testing.T) {
		os.Args = []string{"gophauth", "-c", "1.json", "-config", "2.json"}
		assert.Equal(t, "2.json", JsonConfigFlags())
	})
}
