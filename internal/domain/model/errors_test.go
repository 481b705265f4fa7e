package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Subject: `cdn channel "public"`, Field: "region"}
	assert.Equal(t, `cdn channel "public" must include "region"`, err.Error())
}

func TestPathErrorMessage(t *testing.T) {
	err := &PathError{Path: "/data/missing", Reason: "build path does not exist"}
	assert.Equal(t, "build path does not exist: /data/missing", err.Error())

	bare := &PathError{Path: "/data/odd"}
	assert.Equal(t, "invalid build path: /data/odd", bare.Error())
}

func TestProcessErrorMessage(t *testing.T) {
	err := &ProcessError{Tool: "steamcmd", ExitCode: 8}
	assert.Equal(t, "steamcmd upload failed with code 8", err.Error())
}

func TestWrappedErrorsUnwrap(t *testing.T) {
	cause := errors.New("disk full")

	descErr := &DescriptorError{AppID: "480", Err: cause}
	assert.ErrorIs(t, descErr, cause)

	upErr := &UploadError{Bucket: "releases", Key: "game.zip", Err: cause}
	assert.ErrorIs(t, upErr, cause)
	assert.Contains(t, upErr.Error(), "releases")

	decErr := &DecodeError{Err: cause}
	assert.ErrorIs(t, decErr, cause)
}

func TestUploadErrorWithoutBucket(t *testing.T) {
	err := &UploadError{Key: "game.zip", Err: fmt.Errorf("file not found")}
	assert.Equal(t, "upload game.zip: file not found", err.Error())
}
