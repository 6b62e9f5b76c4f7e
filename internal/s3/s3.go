package s3

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/windoze95/saltybytes-voice/internal/config"
)

// newS3Client creates a new S3 client from the app config.
// When AWS access key and secret are provided, static credentials are used;
// otherwise the default credential chain is preserved (IAM role, instance
// profile, etc.) so ECS/EC2 task roles work without explicit keys.
func newS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.EnvVars.AWSRegion),
	}

	if cfg.EnvVars.AWSAccessKeyID != "" && cfg.EnvVars.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.EnvVars.AWSAccessKeyID,
			cfg.EnvVars.AWSSecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %v", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// RecipeArchiver copies acquired recipe text to S3 so it outlives the
// session store.
type RecipeArchiver struct {
	bucket   string
	uploader *manager.Uploader
}

// NewRecipeArchiver returns nil when no bucket is configured; callers treat
// a nil archiver as "archiving disabled".
func NewRecipeArchiver(ctx context.Context, cfg *config.Config) (*RecipeArchiver, error) {
	if cfg.EnvVars.S3Bucket == "" {
		return nil, nil
	}
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &RecipeArchiver{
		bucket:   cfg.EnvVars.S3Bucket,
		uploader: manager.NewUploader(client),
	}, nil
}

// ArchiveRecipe uploads the recipe text for sessionID and returns its location URL.
func (a *RecipeArchiver) ArchiveRecipe(ctx context.Context, sessionID, recipeText string) (string, error) {
	result, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(GenerateRecipeKey(sessionID)),
		Body:        strings.NewReader(recipeText),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}
	return result.Location, nil
}

// GenerateRecipeKey generates the S3 key for a session's recipe text.
func GenerateRecipeKey(sessionID string) string {
	return fmt.Sprintf("recipes/%s/recipe.txt", sessionID)
}
