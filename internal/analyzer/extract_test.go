package analyzer

import (
	"reflect"
	"testing"
)

func TestOperands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		args       []string
		valueFlags map[string]bool
		want       []string
	}{
		{"flags skipped", []string{"-rf", "./a", "--force", "./b"}, nil, []string{"./a", "./b"}},
		{"value flag consumes next", []string{"-s", "0", "./file"}, flagSet("-s"), []string{"./file"}},
		{"double dash", []string{"-f", "--", "-dash", "./x"}, nil, []string{"-dash", "./x"}},
		{"lone dash is operand", []string{"-"}, nil, []string{"-"}},
		{"empty", nil, nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := operands(tt.args, tt.valueFlags); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("operands(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestDestinationOperand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"./a", "./b", "./dest"}, []string{"./dest"}},
		{[]string{"-r", "./a", "~/dest"}, []string{"~/dest"}},
		{[]string{"-t", "/etc", "./a"}, []string{"/etc"}},
		{[]string{"-vt", "/etc", "./a"}, []string{"/etc"}},
		{[]string{"-t/etc", "./a"}, []string{"/etc"}},
		{[]string{"--target-directory=/etc", "./a"}, []string{"/etc"}},
		{[]string{"--target-directory", "/etc", "./a"}, []string{"/etc"}},
		{[]string{"-S", ".bak", "./a", "./b"}, []string{"./b"}},
		{[]string{"-t"}, nil},
		{[]string{"-f"}, nil},
	}

	for _, tt := range tests {
		if got := destinationOperand(tt.args); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("destinationOperand(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestFindRoots(t *testing.T) {
	t.Parallel()

	tests := []struct {
		args []string
		want []string
	}{
		{[]string{"./a", "./b", "-name", "x"}, []string{"./a", "./b"}},
		{[]string{"-L", "~/x", "-delete"}, []string{"~/x"}},
		{[]string{"-D", "tree", "/etc", "-delete"}, []string{"/etc"}},
		{[]string{"-name", "x", "-delete"}, []string{"."}},
		{[]string{"(", "-name", "x", ")"}, []string{"."}},
		{nil, []string{"."}},
	}

	for _, tt := range tests {
		if got := findRoots(tt.args); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("findRoots(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestDDOutput(t *testing.T) {
	t.Parallel()

	got := ddOutput([]string{"if=/dev/zero", "of=./disk.img", "bs=1M"})
	if !reflect.DeepEqual(got, []string{"./disk.img"}) {
		t.Fatalf("unexpected dd targets %q", got)
	}
	if got := ddOutput([]string{"if=/dev/zero"}); len(got) != 0 {
		t.Fatalf("expected no dd targets, got %q", got)
	}
}

func TestIsRemote(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"user@host:/backup":  true,
		"host:backup":        true,
		"host::module":       true,
		"rsync://host/mod":   true,
		"./src/":             false,
		"/abs/path":          false,
		"./dir/with:colon":   false,
		"~/backup":           false,
		"C":                  false,
		":leading-colon/dir": false,
	}
	for operand, want := range tests {
		if got := isRemote(operand); got != want {
			t.Fatalf("isRemote(%q) = %v, want %v", operand, got, want)
		}
	}
}

func TestScanRedirects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		command string
		want    []string
	}{
		{"echo a > ./out", []string{"./out"}},
		{"echo a >> ./log 2>/dev/null", []string{"./log", "/dev/null"}},
		{`echo a > "/tmp/with space"`, []string{"/tmp/with space"}},
		{"echo a > '~/quoted'", []string{"~/quoted"}},
		{"echo a>./tight;ls", []string{"./tight"}},
		{"cat x 2>&1", []string{}},
		{"ls -la", []string{}},
	}

	for _, tt := range tests {
		if got := scanRedirects(tt.command); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("scanRedirects(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}
