package domain

import "fmt"

// TransferError reports a failed download of a remote file.
type TransferError struct {
	FileID string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("transfer %s: %v", e.FileID, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// TranscodeError reports a transcoder that failed to launch or exited non-zero.
type TranscodeError struct {
	Input  string
	Output string // combined stdout/stderr of the tool, may be empty
	Err    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("transcode %s: %v", e.Input, e.Err)
}

func (e *TranscodeError) Unwrap() error { return e.Err }

// UploadError reports a failed platform call made on behalf of a handler.
type UploadError struct {
	Op     string // sendVideo | sendMessage | deleteMessage
	ChatID int64
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s to chat %d: %v", e.Op, e.ChatID, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// CleanupError reports a temporary file that could not be removed.
// It is only ever logged.
type CleanupError struct {
	Path string
	Err  error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup %s: %v", e.Path, e.Err)
}

func (e *CleanupError) Unwrap() error { return e.Err }
