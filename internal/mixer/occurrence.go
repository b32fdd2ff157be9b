package mixer

// maxOccurrencesPerEntry bounds how many periodic occurrences of a single
// entry are mixed into one block. A repeat_interval much smaller than the
// entry's own clip length can in principle overlap unboundedly many
// instances in one block; this cap keeps the realtime work for a single
// entry bounded regardless of how the entry was authored.
const maxOccurrencesPerEntry = 4096

// occurrences appends to out the start frame (transport-relative) of every
// occurrence of an entry with the given playAt/repeat/clipLen that overlaps
// the block [T0, T0+nframes). repeat <= 0 means single-shot (one
// occurrence, at most). out is reused across calls by the caller to avoid
// allocating on the realtime thread.
func occurrences(playAt, repeat, clipLen, T0 int64, nframes int, out []int64) []int64 {
	end := T0 + int64(nframes)
	if repeat <= 0 {
		s := playAt
		if s+clipLen > T0 && s < end {
			out = append(out, s)
		}
		return out
	}

	// An occurrence at offset k (k >= 0) starts at s = playAt + k*repeat and
	// overlaps the block iff s+clipLen > T0 and s < end.
	kMinRaw := T0 - clipLen - playAt
	kMaxRaw := end - playAt

	kMin := floorDiv(kMinRaw, repeat) + 1
	if kMin < 0 {
		kMin = 0
	}
	kMax := floorDiv(kMaxRaw-1, repeat)

	for k, count := kMin, 0; k <= kMax && count < maxOccurrencesPerEntry; k, count = k+1, count+1 {
		out = append(out, playAt+k*repeat)
	}
	return out
}

// floorDiv computes floor(a/b) for b > 0, unlike Go's native truncating
// integer division.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}
