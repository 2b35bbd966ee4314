package analysis

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
)

// Status is the job status reported by the analysis service.
type Status string

const (
	StatusInProgress     Status = Status(types.JobStatusInProgress)
	StatusSucceeded      Status = Status(types.JobStatusSucceeded)
	StatusFailed         Status = Status(types.JobStatusFailed)
	StatusPartialSuccess Status = Status(types.JobStatusPartialSuccess)
)

// Terminal reports whether the job has left the in-progress state.
func (s Status) Terminal() bool {
	return s != StatusInProgress
}

// Result is the persisted form of a terminal analysis response. It is a
// projection of GetDocumentAnalysisOutput, not the raw response. SDK block
// fields with no counterpart in Block (such as Query) are dropped.
type Result struct {
	JobID         string    `json:"jobId" yaml:"jobId"`
	JobStatus     Status    `json:"jobStatus" yaml:"jobStatus"`
	StatusMessage string    `json:"statusMessage,omitempty" yaml:"statusMessage,omitempty"`
	ModelVersion  string    `json:"modelVersion,omitempty" yaml:"modelVersion,omitempty"`
	Pages         int       `json:"pages,omitempty" yaml:"pages,omitempty"`
	Warnings      []Warning `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Blocks        []Block   `json:"blocks" yaml:"blocks"`
}

// Warning reports pages the service could not fully process.
type Warning struct {
	ErrorCode string  `json:"errorCode" yaml:"errorCode"`
	Pages     []int32 `json:"pages,omitempty" yaml:"pages,omitempty"`
}

// Block is one structural element (page, line, word, table cell, key/value...) of a result.
type Block struct {
	ID              string         `json:"id,omitempty" yaml:"id,omitempty"`
	BlockType       string         `json:"blockType" yaml:"blockType"`
	Text            string         `json:"text,omitempty" yaml:"text,omitempty"`
	TextType        string         `json:"textType,omitempty" yaml:"textType,omitempty"`
	Confidence      float32        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Page            int32          `json:"page,omitempty" yaml:"page,omitempty"`
	RowIndex        int32          `json:"rowIndex,omitempty" yaml:"rowIndex,omitempty"`
	ColumnIndex     int32          `json:"columnIndex,omitempty" yaml:"columnIndex,omitempty"`
	RowSpan         int32          `json:"rowSpan,omitempty" yaml:"rowSpan,omitempty"`
	ColumnSpan      int32          `json:"columnSpan,omitempty" yaml:"columnSpan,omitempty"`
	SelectionStatus string         `json:"selectionStatus,omitempty" yaml:"selectionStatus,omitempty"`
	EntityTypes     []string       `json:"entityTypes,omitempty" yaml:"entityTypes,omitempty"`
	Relationships   []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	Geometry        *Geometry      `json:"geometry,omitempty" yaml:"geometry,omitempty"`
}

// Relationship links a block to child or value blocks by ID.
type Relationship struct {
	Type string   `json:"type" yaml:"type"`
	IDs  []string `json:"ids" yaml:"ids"`
}

// Geometry locates a block on its page using ratios of page size.
type Geometry struct {
	BoundingBox BoundingBox `json:"boundingBox" yaml:"boundingBox"`
	Polygon     []Point     `json:"polygon,omitempty" yaml:"polygon,omitempty"`
}

type BoundingBox struct {
	Width  float32 `json:"width" yaml:"width"`
	Height float32 `json:"height" yaml:"height"`
	Left   float32 `json:"left" yaml:"left"`
	Top    float32 `json:"top" yaml:"top"`
}

type Point struct {
	X float32 `json:"x" yaml:"x"`
	Y float32 `json:"y" yaml:"y"`
}

// FromOutput converts a service response into a Result.
func FromOutput(jobID string, out *textract.GetDocumentAnalysisOutput) Result {
	if out == nil {
		return Result{JobID: jobID}
	}
	res := Result{
		JobID:         jobID,
		JobStatus:     Status(out.JobStatus),
		StatusMessage: aws.ToString(out.StatusMessage),
		ModelVersion:  aws.ToString(out.AnalyzeDocumentModelVersion),
		Blocks:        make([]Block, 0, len(out.Blocks)),
	}
	if out.DocumentMetadata != nil {
		res.Pages = int(aws.ToInt32(out.DocumentMetadata.Pages))
	}
	for _, w := range out.Warnings {
		res.Warnings = append(res.Warnings, Warning{ErrorCode: aws.ToString(w.ErrorCode), Pages: w.Pages})
	}
	for _, b := range out.Blocks {
		res.Blocks = append(res.Blocks, fromBlock(b))
	}
	return res
}

func fromBlock(b types.Block) Block {
	block := Block{
		ID:              aws.ToString(b.Id),
		BlockType:       string(b.BlockType),
		Text:            aws.ToString(b.Text),
		TextType:        string(b.TextType),
		Confidence:      aws.ToFloat32(b.Confidence),
		Page:            aws.ToInt32(b.Page),
		RowIndex:        aws.ToInt32(b.RowIndex),
		ColumnIndex:     aws.ToInt32(b.ColumnIndex),
		RowSpan:         aws.ToInt32(b.RowSpan),
		ColumnSpan:      aws.ToInt32(b.ColumnSpan),
		SelectionStatus: string(b.SelectionStatus),
	}
	for _, et := range b.EntityTypes {
		block.EntityTypes = append(block.EntityTypes, string(et))
	}
	for _, rel := range b.Relationships {
		block.Relationships = append(block.Relationships, Relationship{Type: string(rel.Type), IDs: rel.Ids})
	}
	if g := b.Geometry; g != nil {
		geom := &Geometry{}
		if g.BoundingBox != nil {
			geom.BoundingBox = BoundingBox{
				Width:  g.BoundingBox.Width,
				Height: g.BoundingBox.Height,
				Left:   g.BoundingBox.Left,
				Top:    g.BoundingBox.Top,
			}
		}
		for _, p := range g.Polygon {
			geom.Polygon = append(geom.Polygon, Point{X: p.X, Y: p.Y})
		}
		block.Geometry = geom
	}
	return block
}
