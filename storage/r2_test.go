package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type recordingPutter struct {
	in   *s3.PutObjectInput
	body string
	err  error
}

func (p *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.in = in
	b, _ := io.ReadAll(in.Body)
	p.body = string(b)
	return &s3.PutObjectOutput{}, p.err
}

func TestUploadReturnsCDNURL(t *testing.T) {
	p := &recordingPutter{}
	s := &R2Storage{client: p, bucket: "icons", cdnBaseURL: "https://cdn.example.com"}

	url, err := s.Upload(t.Context(), "icons/skills/focus.png", strings.NewReader("png"), "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://cdn.example.com/icons/skills/focus.png" {
		t.Fatalf("unexpected url %s", url)
	}
	if aws.ToString(p.in.Bucket) != "icons" || aws.ToString(p.in.ContentType) != "image/png" || p.body != "png" {
		t.Fatalf("unexpected put %+v body=%q", p.in, p.body)
	}
}

func TestUploadWrapsError(t *testing.T) {
	boom := errors.New("denied")
	s := &R2Storage{client: &recordingPutter{err: boom}, bucket: "icons", cdnBaseURL: "https://cdn"}

	if _, err := s.Upload(t.Context(), "k", strings.NewReader(""), "image/png"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
