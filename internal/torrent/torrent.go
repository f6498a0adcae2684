// Package torrent builds the .torrent metainfo files that mirror the
// archive tree: one per released book, one per creator with released
// books, and one site-wide file over everything.
package torrent

import (
	"bytes"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackpal/bencode-go"
)

// pieceLength is the metainfo piece size. 256 KiB keeps the pieces list
// small for archives in the tens of megabytes.
const pieceLength = 256 * 1024

const createdBy = "zco.mx"

// entry is one content file of a torrent: its source on disk and its
// path components inside the torrent.
type entry struct {
	src  string
	path []string
}

// metainfo assembles a bencoded .torrent document over the given entries.
// A single entry yields a single-file torrent named after the file; more
// yield a multi-file torrent with name as the directory.
func metainfo(name string, entries []entry, trackers []string, createdAt time.Time) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("torrent: no content files for %s", name)
	}
	if len(trackers) == 0 {
		return nil, fmt.Errorf("torrent: no trackers configured for %s", name)
	}

	pieces, sizes, err := hashPieces(entries)
	if err != nil {
		return nil, err
	}

	info := map[string]interface{}{
		"name":         name,
		"piece length": pieceLength,
		"pieces":       string(pieces),
	}
	if len(entries) == 1 {
		info["name"] = entries[0].path[len(entries[0].path)-1]
		info["length"] = sizes[0]
	} else {
		files := make([]interface{}, len(entries))
		for i, e := range entries {
			files[i] = map[string]interface{}{
				"length": sizes[i],
				"path":   e.path,
			}
		}
		info["files"] = files
	}

	doc := map[string]interface{}{
		"announce":      trackers[0],
		"creation date": createdAt.Unix(),
		"created by":    createdBy,
		"info":          info,
	}
	// One tracker per tier, in the configured order.
	tiers := make([]interface{}, len(trackers))
	for i, tracker := range trackers {
		tiers[i] = []interface{}{tracker}
	}
	doc["announce-list"] = tiers

	var buf bytes.Buffer
	if err := bencode.Marshal(&buf, doc); err != nil {
		return nil, fmt.Errorf("torrent: encode %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// hashPieces SHA1-hashes the concatenated content in pieceLength chunks,
// spanning file boundaries as the metainfo format requires.
func hashPieces(entries []entry) (pieces []byte, sizes []int64, err error) {
	sizes = make([]int64, len(entries))

	hash := sha1.New()
	filled := 0

	for i, e := range entries {
		file, err := os.Open(e.src)
		if err != nil {
			return nil, nil, fmt.Errorf("torrent: open %s: %w", e.src, err)
		}

		buf := make([]byte, pieceLength)
		for {
			n, readErr := file.Read(buf)
			if n > 0 {
				sizes[i] += int64(n)
				chunk := buf[:n]
				for len(chunk) > 0 {
					take := pieceLength - filled
					if take > len(chunk) {
						take = len(chunk)
					}
					hash.Write(chunk[:take])
					filled += take
					chunk = chunk[take:]

					if filled == pieceLength {
						pieces = hash.Sum(pieces)
						hash.Reset()
						filled = 0
					}
				}
			}
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				file.Close()
				return nil, nil, fmt.Errorf("torrent: read %s: %w", e.src, readErr)
			}
		}
		file.Close()
	}

	if filled > 0 {
		pieces = hash.Sum(pieces)
	}
	return pieces, sizes, nil
}
