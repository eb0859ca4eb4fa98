package kvlog

import (
	"bufio"
	"io"
)

// buildIndex reconstructs the key -> offset index by sequentially decoding
// every record from the start of the log. A Set records its start offset, a
// Remove erases the key.
//
// Replay terminates, without error, at the first position where decoding
// fails: a truncated or partially written tail record is treated as the end
// of valid data, not as corruption. No distinction is made between a clean
// end of file and a bad record mid-file. Appends still go to the physical
// end of file; existing bytes are never overwritten.
func buildIndex(l *logFile) map[string]int64 {
	index := make(map[string]int64)

	reader := bufio.NewReader(io.NewSectionReader(l.file, 0, l.size))

	var offset int64

	for offset < l.size {
		rec, n, err := decodeRecord(reader)
		if err != nil {
			break
		}

		switch rec.tag {
		case tagSet:
			index[rec.key] = offset
		case tagRemove:
			delete(index, rec.key)
		}

		offset += n
	}

	return index
}
