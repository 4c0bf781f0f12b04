package spaces

import (
	"context"
	"fmt"
	"io"

	"github.com/DMarby/stockphotos/internal/alias"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Config is the location of an alias table stored in a digitalocean space, or any other S3 compatible bucket
type Config struct {
	Space          string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Key            string
	ForcePathStyle bool
}

// New loads an alias table from an object in a digitalocean space
func New(ctx context.Context, cfg Config) (alias.Map, error) {
	spacesSession, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String(cfg.Endpoint),
		Region:           aws.String("us-east-1"), // Needs to be us-east-1 for Spaces, or it'll fail
		S3ForcePathStyle: aws.Bool(cfg.ForcePathStyle),
	})
	if err != nil {
		return nil, err
	}

	object := s3.GetObjectInput{
		Bucket: aws.String(cfg.Space),
		Key:    aws.String(cfg.Key),
	}

	output, err := s3.New(spacesSession).GetObjectWithContext(ctx, &object)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, fmt.Errorf("alias table %s does not exist in %s", cfg.Key, cfg.Space)
		}

		return nil, err
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, err
	}

	return alias.Parse(data)
}
