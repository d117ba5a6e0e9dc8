package check

import "testing"

func TestFingerprintOrderInsensitive(t *testing.T) {
	a := Fingerprint([]string{"a.service", "b.service", "c.service"})
	b := Fingerprint([]string{"c.service", "a.service", "b.service"})
	if a != b {
		t.Fatalf("fingerprints differ across orderings: %s vs %s", a, b)
	}
}

func TestFingerprintDetectsDrift(t *testing.T) {
	before := Fingerprint([]string{"a.service", "b.service"})
	after := Fingerprint([]string{"a.service", "b.service", "c.service"})
	if before == after {
		t.Fatal("fingerprint did not change when the fleet grew")
	}
}

func TestFingerprintDoesNotMutateInput(t *testing.T) {
	names := []string{"b.service", "a.service"}
	Fingerprint(names)
	if names[0] != "b.service" || names[1] != "a.service" {
		t.Fatalf("input slice reordered: %v", names)
	}
}
