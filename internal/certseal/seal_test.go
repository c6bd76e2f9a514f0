package certseal_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jakaria-jihad/certchain/internal/certseal"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
)

func sampleRecord() *model.StudentRecord {
	cgpa := 3.72
	created := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)
	finalized := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	return &model.StudentRecord{
		StudentID: "S100",
		Name:      "Jane Doe",
		Major:     "CS",
		BirthDate: "2001-02-03",
		CGPA:      &cgpa,
		AdminChain: model.AdminChain{
			{AdminID: "A1", Role: model.RoleEntry, Actions: []string{"added student"}, Timestamp: created},
		},
		Finalized:          true,
		CertificateSerial:  "S100-202405",
		SecurityHex:        "0A1B2C3D4E5F",
		Timestamp:          created,
		TimestampFinalized: &finalized,
	}
}

func TestCommit_deterministic(t *testing.T) {
	rec := sampleRecord()

	d1, err := certseal.Commit(rec)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := certseal.Commit(rec)
	if err != nil {
		t.Fatal(err)
	}
	if d1 != d2 {
		t.Errorf("same snapshot produced different digests: %q vs %q", d1, d2)
	}
	if len(d1) != 64 {
		t.Errorf("digest length: got %d, want 64 hex chars", len(d1))
	}
}

func TestCommit_excludesBlockHash(t *testing.T) {
	rec := sampleRecord()

	before, err := certseal.Commit(rec)
	if err != nil {
		t.Fatal(err)
	}
	rec.BlockHash = before
	after, err := certseal.Commit(rec)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Error("digest changed after stamping block_hash; commitment must exclude it")
	}
	if rec.BlockHash != before {
		t.Error("Commit mutated the record")
	}
}

func TestCommit_sensitiveToContent(t *testing.T) {
	a := sampleRecord()
	b := sampleRecord()
	b.Major = "EE"

	da, _ := certseal.Commit(a)
	db, _ := certseal.Commit(b)
	if da == db {
		t.Error("records with different content produced the same digest")
	}
}

func TestVerify(t *testing.T) {
	rec := sampleRecord()
	digest, err := certseal.Commit(rec)
	if err != nil {
		t.Fatal(err)
	}
	rec.BlockHash = digest

	ok, err := certseal.Verify(rec)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("Verify rejected an untampered record")
	}

	rec.Name = "Janet Doe"
	ok, err = certseal.Verify(rec)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("Verify accepted a tampered record")
	}
}

func TestSerial_format(t *testing.T) {
	at := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	if got := certseal.Serial("S100", at); got != "S100-202405" {
		t.Errorf("Serial: got %q, want %q", got, "S100-202405")
	}
	at = time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	if got := certseal.Serial("X9", at); got != "X9-202312" {
		t.Errorf("Serial: got %q, want %q", got, "X9-202312")
	}
}

func TestSecurityHex_shape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := certseal.SecurityHex()
		if err != nil {
			t.Fatal(err)
		}
		if len(code) != certseal.SecurityHexLength {
			t.Fatalf("code length: got %d, want %d", len(code), certseal.SecurityHexLength)
		}
		for _, r := range code {
			if !strings.ContainsRune("0123456789ABCDEF", r) {
				t.Fatalf("code %q contains non-hex character %q", code, r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("50 generated codes were all identical")
	}
}
