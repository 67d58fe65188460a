package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "# комментарий\n" +
		"PLAIN_VAR=hello\n" +
		"QUOTED_VAR=\"in quotes\"\n" +
		"SINGLE_VAR='single'\n" +
		"SPACED_VAR =  spaced  \n" +
		"\n" +
		"BROKEN LINE WITHOUT EQUALS\n" +
		"=no_key\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	for _, k := range []string{"PLAIN_VAR", "QUOTED_VAR", "SINGLE_VAR", "SPACED_VAR"} {
		os.Unsetenv(k)
		t.Cleanup(func() { os.Unsetenv(k) })
	}
	// Уже заданная переменная окружения не перетирается значением из .env.
	t.Setenv("PLAIN_VAR", "from-env")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open .env: %v", err)
	}
	defer f.Close()
	loadEnvFrom(f)

	if got := os.Getenv("PLAIN_VAR"); got != "from-env" {
		t.Errorf("PLAIN_VAR = %q, want %q (env wins over .env)", got, "from-env")
	}
	if got := os.Getenv("QUOTED_VAR"); got != "in quotes" {
		t.Errorf("QUOTED_VAR = %q, want %q", got, "in quotes")
	}
	if got := os.Getenv("SINGLE_VAR"); got != "single" {
		t.Errorf("SINGLE_VAR = %q, want %q", got, "single")
	}
	if got := os.Getenv("SPACED_VAR"); got != "spaced" {
		t.Errorf("SPACED_VAR = %q, want %q", got, "spaced")
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("UNIONPORTAL_TEST_STR", "value")
	if got := envStr("UNIONPORTAL_TEST_STR", "fallback"); got != "value" {
		t.Errorf("envStr set = %q", got)
	}
	if got := envStr("UNIONPORTAL_TEST_MISSING", "fallback"); got != "fallback" {
		t.Errorf("envStr missing = %q", got)
	}

	t.Setenv("UNIONPORTAL_TEST_INT", "42")
	if got := envInt("UNIONPORTAL_TEST_INT", 7); got != 42 {
		t.Errorf("envInt set = %d", got)
	}
	t.Setenv("UNIONPORTAL_TEST_INT", "not-a-number")
	if got := envInt("UNIONPORTAL_TEST_INT", 7); got != 7 {
		t.Errorf("envInt garbage = %d, want fallback", got)
	}
	if got := envInt("UNIONPORTAL_TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("envInt missing = %d, want fallback", got)
	}
}

func TestDBMaxConnectionsDefault(t *testing.T) {
	c := &Config{Database: DatabaseConfig{MaxConnections: 0}}
	if got := c.DBMaxConnections(); got != 20 {
		t.Errorf("DBMaxConnections zero = %d, want 20", got)
	}
	c.Database.MaxConnections = 5
	if got := c.DBMaxConnections(); got != 5 {
		t.Errorf("DBMaxConnections set = %d, want 5", got)
	}
}
