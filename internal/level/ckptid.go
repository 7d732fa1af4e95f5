package level

// decideCkptID implements spec section 4.7's group ckptID tie-break.
// Source behavior averages all positive surviving ckptIDs; this engine
// defaults to the strict variant the design note in spec section 9
// recommends (require all positive values equal, fail on disagreement)
// and falls back to the legacy mean only when cfg.LegacyCkptIDMean asks
// for it.
func decideCkptID(ids []int64, legacyMean bool) (int64, error) {
	var positives []int64
	for _, v := range ids {
		if v > 0 {
			positives = append(positives, v)
		}
	}
	if len(positives) == 0 {
		return 0, ErrQuorumLost
	}

	if legacyMean {
		var sum int64
		for _, v := range positives {
			sum += v
		}
		return sum / int64(len(positives)), nil
	}

	first := positives[0]
	for _, v := range positives[1:] {
		if v != first {
			return 0, ErrMetadataMismatch
		}
	}
	return first, nil
}

// meanPositive returns the mean of the positive values in vs, or 0 if
// none are positive (spec section 4.7's "mean of positive RSfs").
func meanPositive(vs []int64) int64 {
	var sum, n int64
	for _, v := range vs {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n
}
