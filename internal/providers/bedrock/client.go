// Package bedrock talks to the remote generation service: Amazon Nova Reel
// for asynchronous multi-shot video jobs and a Claude model for shot
// descriptions. Request and response shapes here follow the Bedrock API
// contract, not this application's domain.
package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"reelgen/internal/domain"
	"reelgen/internal/infra"
)

const (
	videoFPS       = 24
	videoDimension = "1280x720"
	maxSeed        = 2147483648
)

// Options controls how the Bedrock client is configured.
type Options struct {
	Region      string
	VideoModel  string
	PromptModel string
	S3OutputURI string
	Logger      *infra.Logger
}

// invokeAPI is the slice of the Bedrock runtime API the client depends on.
type invokeAPI interface {
	StartAsyncInvoke(ctx context.Context, in *bedrockruntime.StartAsyncInvokeInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.StartAsyncInvokeOutput, error)
	GetAsyncInvoke(ctx context.Context, in *bedrockruntime.GetAsyncInvokeInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.GetAsyncInvokeOutput, error)
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// objectAPI is the slice of the S3 API used to retrieve finished artifacts.
type objectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Client wraps the Bedrock runtime and S3 APIs behind the three calls the
// tracker needs: submit, status, fetch.
type Client struct {
	bedrock     invokeAPI
	objects     objectAPI
	videoModel  string
	promptModel string
	outputURI   string
	logger      infra.Logger
	seedFn      func() int64
}

// New constructs a Client using the default AWS credential chain.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.S3OutputURI == "" {
		return nil, errors.New("bedrock: s3 output uri is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}

	var logger infra.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	} else {
		logger = zerolog.New(io.Discard)
	}

	return &Client{
		bedrock:     bedrockruntime.NewFromConfig(awsCfg),
		objects:     s3.NewFromConfig(awsCfg),
		videoModel:  opts.VideoModel,
		promptModel: opts.PromptModel,
		outputURI:   opts.S3OutputURI,
		logger:      logger,
		seedFn:      func() int64 { return rand.Int64N(maxSeed) },
	}, nil
}

// Shot is one entry of a Nova Reel multi-shot request.
type Shot struct {
	Text  string    `json:"text" document:"text"`
	Image ShotImage `json:"image" document:"image"`
}

// ShotImage carries the base64-encoded source frame for a shot.
type ShotImage struct {
	Format string          `json:"format" document:"format"`
	Source ShotImageSource `json:"source" document:"source"`
}

type ShotImageSource struct {
	Bytes string `json:"bytes" document:"bytes"`
}

// NewShot builds a Shot from a description and raw JPEG bytes.
func NewShot(text string, jpeg []byte) Shot {
	return Shot{
		Text: text,
		Image: ShotImage{
			Format: "jpeg",
			Source: ShotImageSource{Bytes: base64.StdEncoding.EncodeToString(jpeg)},
		},
	}
}

// StatusReport is the normalized answer to a status query.
type StatusReport struct {
	Status        domain.JobStatus
	OutputURI     string
	FailureReason string
}

// StartVideoJob submits an asynchronous multi-shot generation job and returns
// the invocation ARN that identifies it.
func (c *Client) StartVideoJob(ctx context.Context, shots []Shot) (string, error) {
	payload := map[string]any{
		"taskType": "MULTI_SHOT_MANUAL",
		"multiShotManualParams": map[string]any{
			"shots": shots,
		},
		"videoGenerationConfig": map[string]any{
			"fps":       videoFPS,
			"dimension": videoDimension,
			"seed":      c.seedFn(),
		},
	}

	out, err := c.bedrock.StartAsyncInvoke(ctx, &bedrockruntime.StartAsyncInvokeInput{
		ModelId:    aws.String(c.videoModel),
		ModelInput: document.NewLazyDocument(payload),
		OutputDataConfig: &brtypes.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig{
			Value: brtypes.AsyncInvokeS3OutputDataConfig{
				S3Uri: aws.String(c.outputURI),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: start async invoke: %v: %w", err, domain.ErrServiceUnavailable)
	}
	arn := aws.ToString(out.InvocationArn)
	if arn == "" {
		return "", fmt.Errorf("bedrock: empty invocation arn: %w", domain.ErrServiceUnavailable)
	}

	c.logger.Info().
		Str("model", c.videoModel).
		Int("shots", len(shots)).
		Str("invocation_arn", arn).
		Msg("bedrock: started multi-shot video job")

	return arn, nil
}

// JobStatus queries the async invocation and maps the service status onto the
// job lifecycle.
func (c *Client) JobStatus(ctx context.Context, invocationARN string) (StatusReport, error) {
	out, err := c.bedrock.GetAsyncInvoke(ctx, &bedrockruntime.GetAsyncInvokeInput{
		InvocationArn: aws.String(invocationARN),
	})
	if err != nil {
		return StatusReport{}, fmt.Errorf("bedrock: get async invoke: %v: %w", err, domain.ErrServiceUnavailable)
	}

	switch out.Status {
	case brtypes.AsyncInvokeStatusInProgress:
		return StatusReport{Status: domain.JobStatusRunning}, nil
	case brtypes.AsyncInvokeStatusCompleted:
		report := StatusReport{Status: domain.JobStatusSucceeded}
		if cfg, ok := out.OutputDataConfig.(*brtypes.AsyncInvokeOutputDataConfigMemberS3OutputDataConfig); ok {
			report.OutputURI = aws.ToString(cfg.Value.S3Uri)
		}
		return report, nil
	case brtypes.AsyncInvokeStatusFailed:
		return StatusReport{
			Status:        domain.JobStatusFailed,
			FailureReason: aws.ToString(out.FailureMessage),
		}, nil
	default:
		return StatusReport{}, fmt.Errorf("bedrock: unrecognized invocation status %q: %w", out.Status, domain.ErrServiceUnavailable)
	}
}

// FetchArtifact downloads the generated MP4 from the job's S3 output prefix.
// Nova Reel writes output.mp4 under the prefix; when absent the prefix is
// listed and the first .mp4 object wins.
func (c *Client) FetchArtifact(ctx context.Context, outputURI string) ([]byte, error) {
	bucket, prefix, err := parseS3URI(outputURI)
	if err != nil {
		return nil, err
	}

	primary := prefix + "/output.mp4"
	data, err := c.getObject(ctx, bucket, primary)
	if err == nil {
		return data, nil
	}
	var noKey *s3types.NoSuchKey
	if !errors.As(err, &noKey) {
		return nil, err
	}

	c.logger.Debug().
		Str("bucket", bucket).
		Str("prefix", prefix).
		Msg("bedrock: output.mp4 missing, scanning prefix for video objects")

	listed, err := c.objects.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: list artifacts: %v: %w", err, domain.ErrServiceUnavailable)
	}
	for _, obj := range listed.Contents {
		key := aws.ToString(obj.Key)
		if strings.HasSuffix(key, ".mp4") {
			return c.getObject(ctx, bucket, key)
		}
	}
	return nil, fmt.Errorf("bedrock: no video artifact under s3://%s/%s: %w", bucket, prefix, domain.ErrServiceUnavailable)
}

func (c *Client) getObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.objects.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, err
		}
		return nil, fmt.Errorf("bedrock: get object s3://%s/%s: %v: %w", bucket, key, err, domain.ErrServiceUnavailable)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("bedrock: read object body: %v: %w", err, domain.ErrServiceUnavailable)
	}
	return data, nil
}

// anthropic InvokeModel request/response shapes.
type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	Messages         []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string          `json:"role"`
	Content []claudeContent `json:"content"`
}

type claudeContent struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// GenerateShotPlan asks the prompt model to turn the source images plus an
// instruction into text, typically a JSON array of shot descriptions.
func (c *Client) GenerateShotPlan(ctx context.Context, instruction string, images [][]byte) (string, error) {
	content := []claudeContent{{Type: "text", Text: instruction}}
	for _, img := range images {
		content = append(content, claudeContent{
			Type: "image",
			Source: &claudeSource{
				Type:      "base64",
				MediaType: "image/jpeg",
				Data:      base64.StdEncoding.EncodeToString(img),
			},
		})
	}

	body, err := json.Marshal(claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1000,
		Messages:         []claudeMessage{{Role: "user", Content: content}},
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal prompt request: %w", err)
	}

	out, err := c.bedrock.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.promptModel),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke prompt model: %v: %w", err, domain.ErrServiceUnavailable)
	}

	var resp claudeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode prompt response: %w", err)
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("bedrock: prompt model returned no text: %w", domain.ErrServiceUnavailable)
}

// parseS3URI splits s3://bucket/prefix into bucket and prefix, trimming any
// trailing slash from the prefix.
func parseS3URI(uri string) (bucket, key string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(uri, scheme) {
		return "", "", fmt.Errorf("bedrock: invalid s3 uri %q", uri)
	}
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", fmt.Errorf("bedrock: invalid s3 uri %q", uri)
	}
	return bucket, strings.Trim(key, "/"), nil
}
