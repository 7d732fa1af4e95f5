package level

import "testing"

func TestDecideCkptIDStrictAgreement(t *testing.T) {
	got, err := decideCkptID([]int64{5, 5, 5}, false)
	if err != nil {
		t.Fatalf("decideCkptID: %v", err)
	}
	if got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestDecideCkptIDStrictDisagreementFails(t *testing.T) {
	_, err := decideCkptID([]int64{5, 6, 5}, false)
	if err != ErrMetadataMismatch {
		t.Fatalf("decideCkptID on disagreement = %v, want ErrMetadataMismatch", err)
	}
}

func TestDecideCkptIDIgnoresNonPositiveValues(t *testing.T) {
	got, err := decideCkptID([]int64{0, 7, 0, 7}, false)
	if err != nil {
		t.Fatalf("decideCkptID: %v", err)
	}
	if got != 7 {
		t.Fatalf("got %d, want 7", got)
	}
}

func TestDecideCkptIDAllNonPositiveFails(t *testing.T) {
	_, err := decideCkptID([]int64{0, 0, 0}, false)
	if err != ErrQuorumLost {
		t.Fatalf("decideCkptID on no survivors = %v, want ErrQuorumLost", err)
	}
}

func TestDecideCkptIDLegacyMeanFallback(t *testing.T) {
	got, err := decideCkptID([]int64{4, 6, 0}, true)
	if err != nil {
		t.Fatalf("decideCkptID: %v", err)
	}
	if got != 5 {
		t.Fatalf("got %d, want 5 (mean of 4 and 6)", got)
	}
}

func TestMeanPositiveIgnoresNonPositive(t *testing.T) {
	if got := meanPositive([]int64{0, 10, 0, 20}); got != 15 {
		t.Fatalf("meanPositive = %d, want 15", got)
	}
}

func TestMeanPositiveAllZero(t *testing.T) {
	if got := meanPositive([]int64{0, 0}); got != 0 {
		t.Fatalf("meanPositive = %d, want 0", got)
	}
}
