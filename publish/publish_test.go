package publish

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearabi/nearabi/abi"
	"github.com/nearabi/nearabi/inspect"
	"github.com/nearabi/nearabi/schema"
)

type fakeUploader struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	err    error
}

func (f *fakeUploader) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.inputs = append(f.inputs, in)
	f.bodies = append(f.bodies, body)
	return &s3.PutObjectOutput{}, nil
}

func testDocument(name, version string) *abi.Document {
	return &abi.Document{
		SchemaVersion: abi.SchemaVersion,
		Metadata:      abi.Metadata{Name: name, Version: version},
		Body: abi.Body{
			Functions:  []abi.Function{{Name: "get_greeting", Kind: inspect.KindView}},
			RootSchema: schema.NewRegistry().RootSchema(),
		},
	}
}

func TestPublish(t *testing.T) {
	fake := &fakeUploader{}
	p, err := NewWithClient(fake, Options{Bucket: "abis", Prefix: "abi"}, nil)
	require.NoError(t, err)

	doc := testDocument("greeter", "0.1.0")
	digest, err := doc.Digest()
	require.NoError(t, err)

	url, err := p.Publish(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "s3://abis/abi/greeter/0.1.0/"+digest+".json", url)

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "abis", aws.ToString(in.Bucket))
	assert.Equal(t, "application/json", aws.ToString(in.ContentType))
	assert.Equal(t, digest, in.Metadata["abi-digest"])

	decoded, err := abi.Decode(fake.bodies[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"get_greeting"}, decoded.FunctionNames())
}

func TestKey(t *testing.T) {
	p, err := NewWithClient(&fakeUploader{}, Options{Bucket: "abis"}, nil)
	require.NoError(t, err)

	key, err := p.Key(testDocument("greeter", ""))
	require.NoError(t, err)
	assert.Regexp(t, `^greeter/unversioned/[0-9a-f]{64}\.json$`, key)

	_, err = p.Key(testDocument("", "1.0.0"))
	assert.ErrorIs(t, err, ErrNoName)
}

func TestPublishErrors(t *testing.T) {
	_, err := New(Options{}, nil)
	assert.ErrorIs(t, err, ErrNoBucket)

	boom := errors.New("access denied")
	p, err := NewWithClient(&fakeUploader{err: boom}, Options{Bucket: "abis"}, nil)
	require.NoError(t, err)
	_, err = p.Publish(context.Background(), testDocument("greeter", "0.1.0"))
	assert.ErrorIs(t, err, boom)
}

func TestNewBuildsClient(t *testing.T) {
	p, err := New(Options{
		Bucket:          "abis",
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		PathStyle:       true,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	}, nil)
	require.NoError(t, err)
	_, ok := p.client.(*s3.Client)
	assert.True(t, ok)
}
