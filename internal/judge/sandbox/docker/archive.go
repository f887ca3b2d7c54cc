package docker

import (
	"archive/tar"
	"bytes"
	"io"
	"path"
	"strings"
	"time"

	appErr "codejudge/pkg/errors"
)

type fileSpec struct {
	Name string
	Data []byte
}

// workspaceArchive builds a tar stream that materializes the given files
// under the workspace directory when extracted at the container root.
func workspaceArchive(workspaceDir string, files []fileSpec) (io.Reader, error) {
	prefix := strings.TrimPrefix(path.Clean(workspaceDir), "/")

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	now := time.Now()
	header := &tar.Header{
		Name:     prefix + "/",
		Typeflag: tar.TypeDir,
		Mode:     0o755,
		ModTime:  now,
	}
	if err := tw.WriteHeader(header); err != nil {
		return nil, appErr.Wrap(err, appErr.ExecutionFailed)
	}

	for _, file := range files {
		header := &tar.Header{
			Name:    path.Join(prefix, file.Name),
			Mode:    0o644,
			Size:    int64(len(file.Data)),
			ModTime: now,
		}
		if err := tw.WriteHeader(header); err != nil {
			return nil, appErr.Wrap(err, appErr.ExecutionFailed)
		}
		if _, err := tw.Write(file.Data); err != nil {
			return nil, appErr.Wrap(err, appErr.ExecutionFailed)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, appErr.Wrap(err, appErr.ExecutionFailed)
	}

	return bytes.NewReader(buf.Bytes()), nil
}
