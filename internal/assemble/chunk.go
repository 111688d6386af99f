package assemble

// Chunk splits items into consecutive slices of size, the last one possibly
// shorter. A size of zero or less keeps everything in one chunk. An empty
// input gives no chunks.
func Chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]T{items}
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		chunks = append(chunks, items[i:end:end])
	}

	return chunks
}

// Like [Chunk], but an empty collection still gets one empty page so its
// document is written.
func paginate[T any](items []T, size int) [][]T {
	chunks := Chunk(items, size)
	if len(chunks) == 0 {
		return [][]T{{}}
	}

	return chunks
}
