package utils

import (
	"context"

	_ "github.com/rclone/rclone/backend/all"
	"github.com/rclone/rclone/cmd"
	"github.com/rclone/rclone/fs/operations"
	"github.com/rclone/rclone/fs/sync"
)

// Directory creation and archive moves go through rclone, so DownloadDir and
// ArchiveDir may name rclone remotes as well as plain local paths.

func MkdirAll(path string) error {
	fdst := cmd.NewFsDir([]string{path})
	return operations.Mkdir(context.Background(), fdst, "")
}

func MoveFiles(src string, dst string) error {
	fsrc, srcFileName, fdst := cmd.NewFsSrcFileDst([]string{src, dst})
	if srcFileName == "" {
		return sync.MoveDir(context.Background(), fdst, fsrc, false, false)
	}
	return operations.MoveFile(context.Background(), fdst, fsrc, srcFileName, srcFileName)
}
