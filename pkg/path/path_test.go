package path

import "testing"

func TestNewAndAccessors(t *testing.T) {
	p := New("bkt", "d1", "f1.txt")
	if p.Container() != "bkt" {
		t.Fatalf("Container() = %q, want bkt", p.Container())
	}
	if p.Name() != "f1.txt" {
		t.Fatalf("Name() = %q, want f1.txt", p.Name())
	}
	if p.Depth() != 2 {
		t.Fatalf("Depth() = %d, want 2", p.Depth())
	}
	if p.FullQualifiedName() != "bkt/d1/f1.txt" {
		t.Fatalf("FullQualifiedName() = %q", p.FullQualifiedName())
	}
	if p.SubPath() != "d1/f1.txt" {
		t.Fatalf("SubPath() = %q", p.SubPath())
	}
}

func TestParent(t *testing.T) {
	p := New("bkt", "d1", "f1.txt")
	parent := p.Parent()
	if parent.FullQualifiedName() != "bkt/d1" {
		t.Fatalf("Parent() = %q", parent.FullQualifiedName())
	}
}

func TestParentOfContainerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic calling Parent() on a bare container path")
		}
	}()
	New("bkt").Parent()
}

func TestIsDirectory(t *testing.T) {
	if !New("bkt").IsDirectory() {
		t.Fatal("bare container path should be a directory")
	}
	if New("bkt", "f1.txt").IsDirectory() {
		t.Fatal("path with a child element should not be a directory")
	}
}

func TestEqualByQualifiedName(t *testing.T) {
	a := New("bkt", "d1", "f1.txt")
	b := FromQualifiedName("bkt/d1/f1.txt")
	if !a.Equal(b) {
		t.Fatalf("expected %q == %q", a, b)
	}
}

func TestChild(t *testing.T) {
	p := New("bkt", "d1").Child("f1.txt")
	if p.FullQualifiedName() != "bkt/d1/f1.txt" {
		t.Fatalf("Child() = %q", p.FullQualifiedName())
	}
}

func TestObjectStoreValidatorRejectsBadBucket(t *testing.T) {
	v := ObjectStoreValidator{}
	cases := []struct {
		p    Path
		fail bool
	}{
		{New("ab"), true},                  // too short
		{New("$root", "f"), true},           // reserved
		{New("Valid-Bucket123", "f"), true}, // uppercase disallowed
		{New("valid-bucket", "f.txt"), false},
	}
	for _, c := range cases {
		err := v.Validate(c.p)
		if (err != nil) != c.fail {
			t.Errorf("Validate(%q) error=%v, want fail=%v", c.p, err, c.fail)
		}
	}
}

func TestDocStoreValidatorRejectsDunder(t *testing.T) {
	v := DocStoreValidator{}
	if err := v.Validate(New("__reserved__", "f")); err == nil {
		t.Fatal("expected rejection of __reserved__ collection name")
	}
	if err := v.Validate(New("col", "f")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBlobKeyElementRejectsControlChars(t *testing.T) {
	v := LocalFSValidator{}
	if err := v.Validate(New("bkt", "bad\x00name")); err == nil {
		t.Fatal("expected rejection of NUL byte in path element")
	}
	if err := v.Validate(New("bkt", "trailing.")); err == nil {
		t.Fatal("expected rejection of trailing dot")
	}
	if err := v.Validate(New("bkt", "..")); err == nil {
		t.Fatal("expected rejection of bare ..")
	}
}

func TestOCIValidatorAllowsDotsNotConsecutive(t *testing.T) {
	v := OCIValidator{}
	if err := v.Validate(New("my.bucket.name", "f")); err != nil {
		t.Fatalf("unexpected error for single dots: %v", err)
	}
	if err := v.Validate(New("my..bucket", "f")); err == nil {
		t.Fatal("expected rejection of consecutive dots")
	}
}
