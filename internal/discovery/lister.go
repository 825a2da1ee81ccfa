// Package discovery lists the Lambda functions the digest inspects.
package discovery

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/ab0utbla-k/cloudwatch-error-digest/internal/discovery")

// LambdaAPI defines the Lambda operations required for function discovery.
type LambdaAPI interface {
	ListFunctions(
		ctx context.Context,
		input *awslambda.ListFunctionsInput,
		optFns ...func(*awslambda.Options)) (*awslambda.ListFunctionsOutput, error)
}

// FunctionLister returns every function name visible to the client's region.
type FunctionLister struct {
	client LambdaAPI
}

// NewFunctionLister creates a new FunctionLister instance.
func NewFunctionLister(client LambdaAPI) *FunctionLister {
	return &FunctionLister{client: client}
}

// List walks every ListFunctions page. Any page failure fails the whole listing.
func (l *FunctionLister) List(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "discovery.list")
	defer span.End()

	paginator := awslambda.NewListFunctionsPaginator(l.client, &awslambda.ListFunctionsInput{})

	var names []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot list functions: %w", err)
		}

		for _, fn := range page.Functions {
			if name := aws.ToString(fn.FunctionName); name != "" {
				names = append(names, name)
			}
		}
	}

	span.SetAttributes(attribute.Int("functions.count", len(names)))

	return names, nil
}
