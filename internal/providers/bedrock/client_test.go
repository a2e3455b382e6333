package bedrock

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"reelgen/internal/domain"
)

type fakeInvoker struct {
	startOut *bedrockruntime.StartAsyncInvokeOutput
	startErr error
	startIn  *bedrockruntime.StartAsyncInvokeInput

	getOut *bedrockruntime.GetAsyncInvokeOutput
	getErr error

	invokeOut *bedrockruntime.InvokeModelOutput
	invokeErr error
}

func (f *fakeInvoker) StartAsyncInvoke(_ context.Context, in *bedrockruntime.StartAsyncInvokeInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.StartAsyncInvokeOutput, error) {
	f.startIn = in
	return f.startOut, f.startErr
}

func (f *fakeInvoker) GetAsyncInvoke(_ context.Context, _ *bedrockruntime.GetAsyncInvokeInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.GetAsyncInvokeOutput, error) {
	return f.getOut, f.getErr
}

func (f *fakeInvoker) InvokeModel(_ context.Context, _ *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	return f.invokeOut, f.invokeErr
}

type fakeObjects struct {
	objects map[string][]byte
	listErr error
	getErr  error
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeObjects) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := &s3.ListObjectsV2Output{}
	for key := range f.objects {
		if strings.HasPrefix(key, aws.ToString(in.Prefix)) {
			out.Contents = append(out.Contents, s3types.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func testClient(inv invokeAPI, obj objectAPI) *Client {
	return &Client{
		bedrock:     inv,
		objects:     obj,
		videoModel:  "amazon.nova-reel-v1:1",
		promptModel: "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		outputURI:   "s3://bucket/uploads/",
		logger:      zerolog.New(io.Discard),
		seedFn:      func() int64 { return 42 },
	}
}

func TestStartVideoJob(t *testing.T) {
	inv := &fakeInvoker{
		startOut: &bedrockruntime.StartAsyncInvokeOutput{
			InvocationArn: aws.String("arn:aws:bedrock:us-east-1:000:async-invoke/abc"),
		},
	}
	c := testClient(inv, &fakeObjects{})

	shots := []Shot{NewShot("epic aerial rise", []byte("jpegbytes"))}
	arn, err := c.StartVideoJob(context.Background(), shots)
	if err != nil {
		t.Fatalf("StartVideoJob returned error: %v", err)
	}
	if arn != "arn:aws:bedrock:us-east-1:000:async-invoke/abc" {
		t.Fatalf("arn = %q", arn)
	}
	if aws.ToString(inv.startIn.ModelId) != "amazon.nova-reel-v1:1" {
		t.Fatalf("ModelId = %q", aws.ToString(inv.startIn.ModelId))
	}
	if inv.startIn.OutputDataConfig == nil {
		t.Fatal("OutputDataConfig not set")
	}

	// UnmarshalSmithyDocument on a lazy document spuriously errors in
	// aws-sdk-go-v2, so decode via the marshaled JSON instead.
	raw, err := inv.startIn.ModelInput.MarshalSmithyDocument()
	if err != nil {
		t.Fatalf("marshaling ModelInput document: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("decoding ModelInput document: %v", err)
	}
	if payload["taskType"] != "MULTI_SHOT_MANUAL" {
		t.Fatalf("taskType = %v", payload["taskType"])
	}
	multiShot, ok := payload["multiShotManualParams"].(map[string]any)
	if !ok {
		t.Fatalf("multiShotManualParams = %T", payload["multiShotManualParams"])
	}
	if got, ok := multiShot["shots"].([]any); !ok || len(got) != 1 {
		t.Fatalf("shots = %v", multiShot["shots"])
	}
}

func TestStartVideoJobRemoteError(t *testing.T) {
	inv := &fakeInvoker{startErr: errors.New("throttled")}
	c := testClient(inv, &fakeObjects{})

	if _, err := c.StartVideoJob(context.Background(), nil); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestJobStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		out    *bedrockruntime.GetAsyncInvokeOutput
		want   domain.JobStatus
		uri    string
		reason string
	}{
		{
			name: "in progress",
			out:  &bedrockruntime.GetAsyncInvokeOutput{Status: brtypes.AsyncInvokeStatusInProgress},
			want: domain.JobStatusRunning,
		},
		{
			name: "completed with output",
			out: &bedrockruntime.GetAsyncInvokeOutput{
				Status: brtypes.AsyncInvokeStatusCompleted,
				OutputDataConfig: &brtypes.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig{
					Value: brtypes.AsyncInvokeS3OutputDataConfig{S3Uri: aws.String("s3://bucket/uploads/abc")},
				},
			},
			want: domain.JobStatusSucceeded,
			uri:  "s3://bucket/uploads/abc",
		},
		{
			name: "failed with reason",
			out: &bedrockruntime.GetAsyncInvokeOutput{
				Status:         brtypes.AsyncInvokeStatusFailed,
				FailureMessage: aws.String("content policy violation"),
			},
			want:   domain.JobStatusFailed,
			reason: "content policy violation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testClient(&fakeInvoker{getOut: tt.out}, &fakeObjects{})
			report, err := c.JobStatus(context.Background(), "arn")
			if err != nil {
				t.Fatalf("JobStatus returned error: %v", err)
			}
			if report.Status != tt.want {
				t.Fatalf("Status = %q, want %q", report.Status, tt.want)
			}
			if report.OutputURI != tt.uri {
				t.Fatalf("OutputURI = %q, want %q", report.OutputURI, tt.uri)
			}
			if report.FailureReason != tt.reason {
				t.Fatalf("FailureReason = %q, want %q", report.FailureReason, tt.reason)
			}
		})
	}
}

func TestJobStatusUnrecognized(t *testing.T) {
	c := testClient(&fakeInvoker{getOut: &bedrockruntime.GetAsyncInvokeOutput{Status: brtypes.AsyncInvokeStatus("Scheduled")}}, &fakeObjects{})
	if _, err := c.JobStatus(context.Background(), "arn"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestFetchArtifactPrimaryKey(t *testing.T) {
	obj := &fakeObjects{objects: map[string][]byte{
		"uploads/abc/output.mp4": []byte("video-bytes"),
	}}
	c := testClient(&fakeInvoker{}, obj)

	data, err := c.FetchArtifact(context.Background(), "s3://bucket/uploads/abc")
	if err != nil {
		t.Fatalf("FetchArtifact returned error: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestFetchArtifactFallbackListing(t *testing.T) {
	obj := &fakeObjects{objects: map[string][]byte{
		"uploads/abc/shot-final.mp4": []byte("fallback-bytes"),
		"uploads/abc/manifest.json":  []byte("{}"),
	}}
	c := testClient(&fakeInvoker{}, obj)

	data, err := c.FetchArtifact(context.Background(), "s3://bucket/uploads/abc/")
	if err != nil {
		t.Fatalf("FetchArtifact returned error: %v", err)
	}
	if string(data) != "fallback-bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestFetchArtifactNoVideo(t *testing.T) {
	obj := &fakeObjects{objects: map[string][]byte{
		"uploads/abc/manifest.json": []byte("{}"),
	}}
	c := testClient(&fakeInvoker{}, obj)

	if _, err := c.FetchArtifact(context.Background(), "s3://bucket/uploads/abc"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("error = %v, want ErrServiceUnavailable", err)
	}
}

func TestGenerateShotPlan(t *testing.T) {
	inv := &fakeInvoker{
		invokeOut: &bedrockruntime.InvokeModelOutput{
			Body: []byte(`{"content": [{"type": "text", "text": "[{\"text\": \"shot one\", \"image_index\": 0}]"}]}`),
		},
	}
	c := testClient(inv, &fakeObjects{})

	text, err := c.GenerateShotPlan(context.Background(), "describe the shots", [][]byte{[]byte("img")})
	if err != nil {
		t.Fatalf("GenerateShotPlan returned error: %v", err)
	}
	if !strings.Contains(text, "shot one") {
		t.Fatalf("text = %q", text)
	}
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://bucket/uploads/abc", "bucket", "uploads/abc", false},
		{"s3://bucket/uploads/abc/", "bucket", "uploads/abc", false},
		{"https://bucket/uploads", "", "", true},
		{"s3://bucket", "", "", true},
		{"s3://bucket/", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := parseS3URI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("parseS3URI(%q) accepted invalid uri", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseS3URI(%q) returned error: %v", tt.uri, err)
		}
		if bucket != tt.bucket || key != tt.key {
			t.Fatalf("parseS3URI(%q) = %q, %q", tt.uri, bucket, key)
		}
	}
}
