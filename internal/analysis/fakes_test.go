package analysis

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// scriptedTextract replays responses for GetDocumentAnalysis in order and records inputs.
type scriptedTextract struct {
	mu        sync.Mutex
	responses []*textract.GetDocumentAnalysisOutput
	gets      []*textract.GetDocumentAnalysisInput
	starts    []*textract.StartDocumentAnalysisInput
	startOut  *textract.StartDocumentAnalysisOutput
	err       error
}

func (f *scriptedTextract) StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error) {
	_ = ctx
	_ = optFns
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.startOut != nil {
		return f.startOut, nil
	}
	return &textract.StartDocumentAnalysisOutput{JobId: aws.String("job-123")}, nil
}

func (f *scriptedTextract) GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error) {
	_ = optFns
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, params)
	if f.err != nil {
		return nil, f.err
	}
	idx := len(f.gets) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return f.responses[idx], nil
}

func statusOutput(status types.JobStatus, blocks ...types.Block) *textract.GetDocumentAnalysisOutput {
	return &textract.GetDocumentAnalysisOutput{JobStatus: status, Blocks: blocks}
}

func lineBlock(id, text string) types.Block {
	return types.Block{Id: aws.String(id), BlockType: types.BlockTypeLine, Text: aws.String(text), Page: aws.Int32(1)}
}
