package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ironsheep/suptools/internal/dataset"
	"github.com/ironsheep/suptools/internal/imaging"
	"github.com/ironsheep/suptools/internal/plots"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "dataset_split", "image_augment").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		klog.Warningf("tool %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	klog.V(1).Infof("tool %s done in %s", params.Name, time.Since(start))

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies the server configuration for omitted parameters
//  3. Calls the appropriate dataset/imaging/plots function
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	switch name {
	// Dataset Files
	case "dataset_list_files":
		return s.handleDatasetListFiles(args)
	case "dataset_class_names":
		return s.handleDatasetClassNames(args)
	case "dataset_split":
		return s.handleDatasetSplit(args)
	case "dataset_show_batch":
		return s.handleDatasetShowBatch(args)

	// Single Images
	case "image_info":
		return s.handleImageInfo(args)
	case "image_stats":
		return s.handleImageStats(args)
	case "image_augment":
		return s.handleImageAugment(args)
	case "image_central_crop":
		return s.handleImageCentralCrop(args)

	// Training
	case "history_plot":
		return s.handleHistoryPlot(args)

	default:
		return nil, errors.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// dir returns d, or the configured data directory if d is empty.
func (s *Server) dir(d string) string {
	if d == "" {
		return s.cfg.DataDir
	}
	return d
}

// rng returns a random source seeded with seed if given, otherwise with the
// configured seed, otherwise with the clock.
func (s *Server) rng(seed *int64) *rand.Rand {
	switch {
	case seed != nil:
		return rand.New(rand.NewSource(*seed))
	case s.cfg.Seed != 0:
		return rand.New(rand.NewSource(s.cfg.Seed))
	default:
		return rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}

// encodePNGData wraps an already PNG-encoded image.
func encodePNGData(data []byte) (*imaging.EncodedImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "invalid rendered figure")
	}
	return &imaging.EncodedImage{
		Width:       cfg.Width,
		Height:      cfg.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

// === Dataset Files Handlers ===

type datasetListFilesArgs struct {
	Dir        string `json:"dir"`
	Recurse    *bool  `json:"recurse"`
	ImagesOnly *bool  `json:"images_only"`
}

// DatasetFiles is the result of dataset_list_files.
type DatasetFiles struct {
	Dir   string   `json:"dir"`
	Count int      `json:"count"`
	Files []string `json:"files"`
}

func (s *Server) handleDatasetListFiles(args json.RawMessage) (interface{}, error) {
	a := datasetListFilesArgs{}
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	recurse := a.Recurse == nil || *a.Recurse
	imagesOnly := a.ImagesOnly == nil || *a.ImagesOnly
	dir := s.dir(a.Dir)

	var (
		files []string
		err   error
	)
	if imagesOnly {
		files, err = dataset.ListImageFiles(dir, recurse)
	} else {
		files, err = dataset.ListFiles(dir, recurse)
	}
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []string{}
	}
	return &DatasetFiles{Dir: dir, Count: len(files), Files: files}, nil
}

type datasetDirArgs struct {
	Dir string `json:"dir"`
}

// DatasetClasses is the result of dataset_class_names.
type DatasetClasses struct {
	Dir        string              `json:"dir"`
	ClassNames []string            `json:"class_names"`
	Counts     dataset.ClassCounts `json:"counts"`
}

func (s *Server) handleDatasetClassNames(args json.RawMessage) (interface{}, error) {
	var a datasetDirArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	dir := s.dir(a.Dir)
	names, err := dataset.ClassNames(dir)
	if err != nil {
		return nil, err
	}
	files, err := dataset.ListImageFiles(dir, true)
	if err != nil {
		return nil, err
	}
	counts := make(dataset.ClassCounts, len(names))
	for _, name := range names {
		counts[name] = 0
	}
	for class, n := range dataset.CountByClass(files) {
		if _, found := counts[class]; found {
			counts[class] = n
		}
	}
	if names == nil {
		names = []string{}
	}
	return &DatasetClasses{Dir: dir, ClassNames: names, Counts: counts}, nil
}

type datasetSplitArgs struct {
	Dir       string   `json:"dir"`
	ValidPct  *float64 `json:"valid_pct"`
	Seed      *int64   `json:"seed"`
	Dest      string   `json:"dest"`
	ListFiles bool     `json:"list_files"`
}

// DatasetSplit is the result of dataset_split.
type DatasetSplit struct {
	TrainCount   int                 `json:"train_count"`
	ValidCount   int                 `json:"valid_count"`
	TrainByClass dataset.ClassCounts `json:"train_by_class"`
	ValidByClass dataset.ClassCounts `json:"valid_by_class"`
	Train        []string            `json:"train,omitempty"`
	Valid        []string            `json:"valid,omitempty"`
	CopiedTo     string              `json:"copied_to,omitempty"`
	CopiedSize   string              `json:"copied_size,omitempty"`
}

func (s *Server) handleDatasetSplit(args json.RawMessage) (interface{}, error) {
	var a datasetSplitArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	validPct := s.cfg.ValidPct
	if a.ValidPct != nil {
		validPct = *a.ValidPct
	}

	files, err := dataset.ListImageFiles(s.dir(a.Dir), true)
	if err != nil {
		return nil, err
	}
	train, valid, err := dataset.TrainValidSplit(files, validPct, s.rng(a.Seed))
	if err != nil {
		return nil, err
	}

	result := &DatasetSplit{
		TrainCount:   len(train),
		ValidCount:   len(valid),
		TrainByClass: dataset.CountByClass(train),
		ValidByClass: dataset.CountByClass(valid),
	}
	if a.ListFiles {
		result.Train, result.Valid = train, valid
	}
	if a.Dest != "" {
		summary, err := dataset.CopySplit(context.Background(), train, valid, a.Dest,
			dataset.CopyOptions{Workers: s.cfg.Workers})
		if err != nil {
			return nil, err
		}
		result.CopiedTo = a.Dest
		result.CopiedSize = humanize.Bytes(summary.Bytes)
	}
	return result, nil
}

type datasetShowBatchArgs struct {
	Paths      []string `json:"paths"`
	Mode       string   `json:"mode"`
	ClassNames []string `json:"class_names"`
	ImageSize  int      `json:"img_size"`
	Seed       *int64   `json:"seed"`
}

func (s *Server) handleDatasetShowBatch(args json.RawMessage) (interface{}, error) {
	var a datasetShowBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	mode := dataset.ModeTrain
	if a.Mode != "" {
		var err error
		if mode, err = dataset.ParseMode(a.Mode); err != nil {
			return nil, err
		}
	}

	cfg := *s.cfg
	if len(a.ClassNames) > 0 {
		cfg.ClassNames = a.ClassNames
	} else if len(cfg.ClassNames) == 0 && len(a.Paths) == 1 {
		// Class names come from the sub-directories of a single dataset directory.
		if info, err := os.Stat(a.Paths[0]); err == nil && info.IsDir() {
			cfg.DataDir = a.Paths[0]
		}
	}
	if a.ImageSize > 0 {
		cfg.ImageSize = a.ImageSize
	}
	if a.Seed != nil {
		cfg.Seed = *a.Seed
	}
	dsCfg, err := cfg.DatasetConfig(mode)
	if err != nil {
		return nil, err
	}
	dsCfg.BatchSize = plots.BatchGridSide * plots.BatchGridSide
	dsCfg.Prefetch = 0 // A single batch is read.
	dsCfg.Repeat = true

	paths := a.Paths
	if len(paths) == 0 {
		paths = []string{cfg.DataDir}
	}
	ds, err := dataset.ReadImageDataset(paths, dsCfg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := plots.ShowBatch(ds, dsCfg.ClassNames, &buf); err != nil {
		return nil, err
	}
	return encodePNGData(buf.Bytes())
}

// === Single Image Handlers ===

type imagePathArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(a.Path)
}

type imageStatsArgs struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

func (s *Server) handleImageStats(args json.RawMessage) (interface{}, error) {
	var a imageStatsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Stats(img, a.Count)
}

type imageAugmentArgs struct {
	Path          string   `json:"path"`
	Augmentations []string `json:"augmentations"`
	Size          int      `json:"size"`
	Seed          *int64   `json:"seed"`
}

func (s *Server) handleImageAugment(args json.RawMessage) (interface{}, error) {
	var a imageAugmentArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	names := a.Augmentations
	if names == nil {
		names = s.cfg.TrainAugments
	}
	augs, err := imaging.ParseAugmentations(names)
	if err != nil {
		return nil, err
	}
	size := a.Size
	if size <= 0 {
		size = s.cfg.ImageSize
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EncodePNG(imaging.Resize(imaging.Apply(img, s.rng(a.Seed), augs...), size))
}

type imageCentralCropArgs struct {
	Path string `json:"path"`
	Size int    `json:"size"`
}

func (s *Server) handleImageCentralCrop(args json.RawMessage) (interface{}, error) {
	var a imageCentralCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	cropped := imaging.CenterSquare(img)
	if a.Size > 0 {
		cropped = imaging.Resize(cropped, a.Size)
	}
	return imaging.EncodePNG(cropped)
}

// === Training Handlers ===

func (s *Server) handleHistoryPlot(args json.RawMessage) (interface{}, error) {
	var a imagePathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, err := os.Open(a.Path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history")
	}
	defer f.Close()
	history, err := plots.LoadHistory(f)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := plots.PlotHistory(history, &buf); err != nil {
		return nil, err
	}
	return encodePNGData(buf.Bytes())
}
