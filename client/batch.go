package client

// MaxBatchSize is the most IDs videos.list accepts in one call. It is also
// the page size used for playlistItems.list.
const MaxBatchSize = 50

// Chunk splits ids into consecutive slices of at most size elements,
// preserving order. A size below 1 is treated as 1. The returned slices share
// ids' backing array.
func Chunk(ids []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	batches := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		batches = append(batches, ids[start:end:end])
	}
	return batches
}
