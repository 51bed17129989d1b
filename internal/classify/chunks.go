package classify

// Chunks splits names into consecutive chunks of at most size entries, keeping
// order. The last chunk may be shorter. A size below 1 is treated as 1.
func Chunks(names []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	chunks := make([][]string, 0, (len(names)+size-1)/size)
	for start := 0; start < len(names); start += size {
		end := min(start+size, len(names))
		chunks = append(chunks, names[start:end:end])
	}
	return chunks
}
