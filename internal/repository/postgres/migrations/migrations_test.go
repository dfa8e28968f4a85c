package migrations

import (
	"io"
	"strings"
	"testing"
)

func TestPrefixSubstitution(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		in     string
		want   string
	}{
		{
			name:   "dev prefix",
			prefix: "dev_",
			in:     "CREATE TABLE __prefix__documents (id UUID);",
			want:   "CREATE TABLE dev_documents (id UUID);",
		},
		{
			name:   "multiple tokens",
			prefix: "test_",
			in:     "ALTER TABLE __prefix__segments ADD CONSTRAINT fk FOREIGN KEY (document_id) REFERENCES __prefix__documents(id);",
			want:   "ALTER TABLE test_segments ADD CONSTRAINT fk FOREIGN KEY (document_id) REFERENCES test_documents(id);",
		},
		{
			name:   "no token",
			prefix: "prod_",
			in:     "SELECT 1;",
			want:   "SELECT 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &prefixSource{prefix: tt.prefix}
			r := s.substitute(io.NopCloser(strings.NewReader(tt.in)))
			out, err := io.ReadAll(r)
			if err != nil {
				t.Fatalf("read substituted migration: %v", err)
			}
			if string(out) != tt.want {
				t.Errorf("substitute() = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestEmbeddedMigrationsCarryPrefixToken(t *testing.T) {
	entries, err := migrationFiles.ReadDir("files")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("no embedded migration files")
	}

	for _, entry := range entries {
		data, err := migrationFiles.ReadFile("files/" + entry.Name())
		if err != nil {
			t.Fatalf("read %s: %v", entry.Name(), err)
		}
		if !strings.Contains(string(data), prefixToken) {
			t.Errorf("%s does not reference %s; it would create unprefixed tables", entry.Name(), prefixToken)
		}
	}
}
