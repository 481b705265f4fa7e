package model

import "fmt"

// PathError indicates an ingest path that is missing or of an unresolvable
// kind (neither file nor directory).
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s", e.Reason, e.Path)
	}
	return fmt.Sprintf("invalid build path: %s", e.Path)
}

// ConfigError indicates a missing required channel field or credential. It is
// raised eagerly, before any subprocess or network call.
type ConfigError struct {
	Subject string
	Field   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s must include %q", e.Subject, e.Field)
}

// DescriptorError indicates an app-build descriptor could not be rendered or
// written.
type DescriptorError struct {
	AppID string
	Err   error
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("generate descriptor for app %s: %v", e.AppID, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }

// ProcessError indicates the external uploader exited with a non-zero code.
type ProcessError struct {
	Tool     string
	ExitCode int
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("%s upload failed with code %d", e.Tool, e.ExitCode)
}

// UploadError indicates an object-storage transfer failure or a missing
// source file.
type UploadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *UploadError) Error() string {
	if e.Bucket != "" {
		return fmt.Sprintf("upload %s to bucket %s: %v", e.Key, e.Bucket, e.Err)
	}
	return fmt.Sprintf("upload %s: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DecodeError indicates a malformed queue payload. The worker loop swallows
// it: the item is dropped and the loop continues.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode job payload: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
