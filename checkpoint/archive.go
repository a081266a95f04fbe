package checkpoint

import (
	"archive/tar"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/ipfs/go-cid"

	"blocksui.xyz/ledger/cidutil"
	"blocksui.xyz/ledger/storage"
)

// ArchiveVersion is the current archive index schema version.
const ArchiveVersion = 1

var epoch0 = time.Unix(0, 0).UTC()

type archiveIndex struct {
	Version     int            `json:"version"`
	Checkpoints []archiveEntry `json:"checkpoints"`
}

type archiveEntry struct {
	CID    string `json:"cid"`
	Height uint64 `json:"height"`
	Size   int    `json:"size"`
}

// Export writes a deterministic TAR archive of the given checkpoints, for
// moving state between deployments. Entry order is lexicographic by CID and
// headers are normalized, so the same set always yields the same bytes.
func Export(ctx context.Context, w io.Writer, cas storage.CAS, ids []cid.Cid) error {
	uniq := make(map[string]cid.Cid, len(ids))
	for _, id := range ids {
		if !id.Defined() {
			return storage.ErrInvalidCID
		}
		uniq[id.String()] = id
	}
	keys := make([]string, 0, len(uniq))
	for k := range uniq {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	tw := tar.NewWriter(w)
	idx := archiveIndex{Version: ArchiveVersion, Checkpoints: make([]archiveEntry, 0, len(keys))}
	for _, k := range keys {
		id := uniq[k]
		b, err := cas.Get(ctx, id)
		if err != nil {
			_ = tw.Close()
			return fmt.Errorf("checkpoint: export %s: %w", k, err)
		}
		snap, err := Decode(b)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeEntry(tw, "checkpoints/"+k, b); err != nil {
			_ = tw.Close()
			return err
		}
		idx.Checkpoints = append(idx.Checkpoints, archiveEntry{CID: k, Height: snap.Height, Size: len(b)})
	}

	b, err := json.Marshal(idx)
	if err != nil {
		_ = tw.Close()
		return err
	}
	if err := writeEntry(tw, "index.json", append(b, '\n')); err != nil {
		_ = tw.Close()
		return err
	}
	return tw.Close()
}

// Import stores every checkpoint in the archive into cas and returns their
// CIDs in archive order. Each entry must hash to its name and decode as a
// snapshot. Unknown entries are rejected.
func Import(ctx context.Context, r io.Reader, cas storage.CAS) ([]cid.Cid, error) {
	tr := tar.NewReader(r)
	seen := map[cid.Cid]struct{}{}
	var out []cid.Cid
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		name := path.Clean(strings.TrimPrefix(h.Name, "./"))
		if h.Typeflag != tar.TypeReg {
			return nil, fmt.Errorf("checkpoint: unexpected archive entry type %v (%s)", h.Typeflag, name)
		}
		if name == "index.json" {
			_, _ = io.Copy(io.Discard, tr)
			continue
		}
		rest, ok := strings.CutPrefix(name, "checkpoints/")
		if !ok || strings.Contains(rest, "/") {
			return nil, fmt.Errorf("checkpoint: unknown archive entry %s", name)
		}
		id, err := cidutil.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", storage.ErrInvalidCID, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("checkpoint: duplicate archive entry %s", rest)
		}
		seen[id] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return nil, err
		}
		if err := storage.Verify(id, payload); err != nil {
			return nil, err
		}
		if _, err := Decode(payload); err != nil {
			return nil, err
		}
		if _, err := cas.Put(ctx, payload); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := tw.Write(content)
	return err
}
