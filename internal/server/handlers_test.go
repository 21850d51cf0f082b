package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/suptools/internal/config"
	"github.com/ironsheep/suptools/internal/imaging"
)

// createTestImageFile creates a solid-colored PNG at dir/class/name and returns its path
func createTestImageFile(t *testing.T, dir, class, name string, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	if err := os.MkdirAll(filepath.Join(dir, class), 0o755); err != nil {
		t.Fatalf("failed to create class directory: %v", err)
	}
	path := filepath.Join(dir, class, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// createTestDataset creates 4 "cats" and 6 "dogs" images plus a text file,
// and returns the dataset directory.
func createTestDataset(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		createTestImageFile(t, dir, "cats", string(rune('a'+i))+".png", 40, 30, color.RGBA{200, 50, 50, 255})
	}
	for i := 0; i < 6; i++ {
		createTestImageFile(t, dir, "dogs", string(rune('a'+i))+".png", 30, 40, color.RGBA{50, 50, 200, 255})
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// callTool runs a tools/call request and decodes the tool result into result.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, result interface{}) {
	t.Helper()
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("%s: unexpected error: %v (%v)", name, resp.Error.Message, resp.Error.Data)
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	if len(content) != 1 || content[0]["type"] != "text" {
		t.Fatalf("%s: unexpected content %v", name, content)
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), result); err != nil {
		t.Fatalf("%s: failed to decode result: %v", name, err)
	}
}

// callToolError runs a tools/call request that must fail, and returns the error.
func callToolError(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPError {
	t.Helper()
	paramsJSON, _ := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil || resp.Error == nil {
		t.Fatalf("%s: expected an error response", name)
	}
	return resp.Error
}

// decodeEncodedImage checks that img holds a valid PNG and returns it.
func decodeEncodedImage(t *testing.T, img *imaging.EncodedImage) image.Image {
	t.Helper()
	if img.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", img.MimeType)
	}
	data, err := base64.StdEncoding.DecodeString(img.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}
	if decoded.Bounds().Dx() != img.Width || decoded.Bounds().Dy() != img.Height {
		t.Errorf("reported size %dx%d, PNG is %v", img.Width, img.Height, decoded.Bounds())
	}
	return decoded
}

func TestHandleToolsCall_DatasetListFiles(t *testing.T) {
	dir := createTestDataset(t)
	s := New()

	var result DatasetFiles
	callTool(t, s, "dataset_list_files", map[string]interface{}{"dir": dir}, &result)
	if result.Count != 10 || len(result.Files) != 10 {
		t.Errorf("Expected 10 images, got %d (%d files)", result.Count, len(result.Files))
	}

	callTool(t, s, "dataset_list_files", map[string]interface{}{"dir": dir, "images_only": false}, &result)
	if result.Count != 11 {
		t.Errorf("Expected 11 files, got %d", result.Count)
	}

	callTool(t, s, "dataset_list_files", map[string]interface{}{"dir": dir, "recurse": false, "images_only": false}, &result)
	if result.Count != 1 || result.Files[0] != filepath.Join(dir, "notes.txt") {
		t.Errorf("Expected only notes.txt, got %v", result.Files)
	}
}

func TestHandleToolsCall_DatasetListFiles_ConfiguredDir(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = createTestDataset(t)
	s := NewWithConfig(cfg)

	var result DatasetFiles
	callTool(t, s, "dataset_list_files", map[string]interface{}{}, &result)
	if result.Dir != cfg.DataDir || result.Count != 10 {
		t.Errorf("Expected 10 images in %s, got %d in %s", cfg.DataDir, result.Count, result.Dir)
	}
}

func TestHandleToolsCall_DatasetClassNames(t *testing.T) {
	dir := createTestDataset(t)
	if err := os.MkdirAll(filepath.Join(dir, "birds"), 0o755); err != nil {
		t.Fatal(err)
	}

	var result DatasetClasses
	callTool(t, New(), "dataset_class_names", map[string]interface{}{"dir": dir}, &result)

	want := []string{"birds", "cats", "dogs"}
	if len(result.ClassNames) != len(want) {
		t.Fatalf("ClassNames: got %v, want %v", result.ClassNames, want)
	}
	for i := range want {
		if result.ClassNames[i] != want[i] {
			t.Errorf("ClassNames[%d]: got %s, want %s", i, result.ClassNames[i], want[i])
		}
	}
	if result.Counts["cats"] != 4 || result.Counts["dogs"] != 6 || result.Counts["birds"] != 0 {
		t.Errorf("Unexpected counts %v", result.Counts)
	}
}

func TestHandleToolsCall_DatasetSplit(t *testing.T) {
	dir := createTestDataset(t)
	dest := filepath.Join(t.TempDir(), "split")

	var result DatasetSplit
	callTool(t, New(), "dataset_split", map[string]interface{}{
		"dir":        dir,
		"valid_pct":  0.3,
		"seed":       42,
		"dest":       dest,
		"list_files": true,
	}, &result)

	if result.TrainCount != 7 || result.ValidCount != 3 {
		t.Errorf("Split sizes: got %d/%d, want 7/3", result.TrainCount, result.ValidCount)
	}
	if len(result.Train) != 7 || len(result.Valid) != 3 {
		t.Errorf("File lists: got %d/%d entries", len(result.Train), len(result.Valid))
	}
	if result.TrainByClass["cats"]+result.ValidByClass["cats"] != 4 {
		t.Errorf("cats must be split between train and valid: %v / %v", result.TrainByClass, result.ValidByClass)
	}
	if result.CopiedTo != dest || result.CopiedSize == "" {
		t.Errorf("Unexpected copy result %q, %q", result.CopiedTo, result.CopiedSize)
	}
	for _, f := range result.Valid {
		copied := filepath.Join(dest, "valid", filepath.Base(filepath.Dir(f)), filepath.Base(f))
		if _, err := os.Stat(copied); err != nil {
			t.Errorf("Expected %s to be copied: %v", copied, err)
		}
	}

	// Same seed, same split.
	var again DatasetSplit
	callTool(t, New(), "dataset_split", map[string]interface{}{"dir": dir, "valid_pct": 0.3, "seed": 42, "list_files": true}, &again)
	for i := range again.Valid {
		if again.Valid[i] != result.Valid[i] {
			t.Errorf("Valid[%d]: got %s, want %s", i, again.Valid[i], result.Valid[i])
		}
	}
	if again.CopiedTo != "" || again.Train == nil {
		t.Errorf("Unexpected second result %+v", again)
	}
}

func TestHandleToolsCall_DatasetSplit_InvalidFraction(t *testing.T) {
	dir := createTestDataset(t)
	mcpErr := callToolError(t, New(), "dataset_split", map[string]interface{}{"dir": dir, "valid_pct": 1.5})
	if mcpErr.Code != -32000 {
		t.Errorf("Error code: got %d, want -32000", mcpErr.Code)
	}
}

func TestHandleToolsCall_DatasetShowBatch(t *testing.T) {
	dir := createTestDataset(t)
	s := New()

	for _, mode := range []string{"train", "valid", "predict"} {
		t.Run(mode, func(t *testing.T) {
			var result imaging.EncodedImage
			callTool(t, s, "dataset_show_batch", map[string]interface{}{
				"paths":    []string{dir},
				"mode":     mode,
				"img_size": 16,
				"seed":     1,
			}, &result)
			decodeEncodedImage(t, &result)
		})
	}

	callToolError(t, s, "dataset_show_batch", map[string]interface{}{"paths": []string{dir}, "mode": "eval"})
	callToolError(t, s, "dataset_show_batch", map[string]interface{}{"paths": []string{filepath.Join(dir, "none-*")}})
}

func TestHandleToolsCall_ImageInfo(t *testing.T) {
	imgPath := createTestImageFile(t, t.TempDir(), "x", "info.png", 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	callTool(t, New(), "image_info", map[string]interface{}{"path": imgPath}, &info)
	if info.Width != 100 || info.Height != 80 {
		t.Errorf("Dimensions: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("Format: got %s, want png", info.Format)
	}
}

func TestHandleToolsCall_ImageStats(t *testing.T) {
	imgPath := createTestImageFile(t, t.TempDir(), "x", "stats.png", 16, 8, color.RGBA{0, 0, 255, 255})

	var stats imaging.ImageStats
	callTool(t, New(), "image_stats", map[string]interface{}{"path": imgPath, "count": 2}, &stats)
	if stats.Width != 16 || stats.Height != 8 {
		t.Errorf("Dimensions: got %dx%d, want 16x8", stats.Width, stats.Height)
	}
	if stats.Mean[2] != 1 || stats.Mean[0] != 0 {
		t.Errorf("Mean: got %v, want [0 0 1]", stats.Mean)
	}
	if len(stats.Dominant) != 1 || stats.Dominant[0].Hex != "#0000f0" {
		t.Errorf("Dominant: got %+v, want a single #0000f0", stats.Dominant)
	}
}

func TestHandleToolsCall_ImageAugment(t *testing.T) {
	imgPath := createTestImageFile(t, t.TempDir(), "x", "aug.png", 60, 40, color.RGBA{120, 80, 40, 255})
	s := New()

	var first, second imaging.EncodedImage
	args := map[string]interface{}{"path": imgPath, "size": 24, "seed": 5}
	callTool(t, s, "image_augment", args, &first)
	callTool(t, s, "image_augment", args, &second)
	decodeEncodedImage(t, &first)
	if first.Width != 24 || first.Height != 24 {
		t.Errorf("Size: got %dx%d, want 24x24", first.Width, first.Height)
	}
	if first.ImageBase64 != second.ImageBase64 {
		t.Error("Same seed should give the same augmented image")
	}

	// No augmentation: only resized.
	var plain imaging.EncodedImage
	callTool(t, s, "image_augment", map[string]interface{}{"path": imgPath, "augmentations": []string{}}, &plain)
	if plain.Width != config.Default().ImageSize {
		t.Errorf("Width: got %d, want the configured image size", plain.Width)
	}
	r, g, b, _ := decodeEncodedImage(t, &plain).At(10, 10).RGBA()
	if r>>8 != 120 || g>>8 != 80 || b>>8 != 40 {
		t.Errorf("Color changed without augmentations: %d,%d,%d", r>>8, g>>8, b>>8)
	}

	callToolError(t, s, "image_augment", map[string]interface{}{"path": imgPath, "augmentations": []string{"rotate"}})
}

func TestHandleToolsCall_ImageCentralCrop(t *testing.T) {
	imgPath := createTestImageFile(t, t.TempDir(), "x", "crop.png", 90, 50, color.RGBA{0, 255, 0, 255})
	s := New()

	var result imaging.EncodedImage
	callTool(t, s, "image_central_crop", map[string]interface{}{"path": imgPath}, &result)
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("Size: got %dx%d, want 50x50", result.Width, result.Height)
	}

	callTool(t, s, "image_central_crop", map[string]interface{}{"path": imgPath, "size": 20}, &result)
	decodeEncodedImage(t, &result)
	if result.Width != 20 || result.Height != 20 {
		t.Errorf("Size: got %dx%d, want 20x20", result.Width, result.Height)
	}
}

func TestHandleToolsCall_HistoryPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	history := `{"accuracy": [0.5, 0.7, 0.8], "val_accuracy": [0.4, 0.6, 0.65], "loss": [0.9, 0.6, 0.4], "val_loss": [1.0, 0.7, 0.6]}`
	if err := os.WriteFile(path, []byte(history), 0o644); err != nil {
		t.Fatal(err)
	}

	var result imaging.EncodedImage
	callTool(t, New(), "history_plot", map[string]interface{}{"path": path}, &result)
	decodeEncodedImage(t, &result)

	if err := os.WriteFile(path, []byte(`{"accuracy": [0.5]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	callToolError(t, New(), "history_plot", map[string]interface{}{"path": path})
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := New()
	for _, name := range []string{"image_info", "image_stats", "image_augment", "image_central_crop", "history_plot"} {
		t.Run(name, func(t *testing.T) {
			mcpErr := callToolError(t, s, name, map[string]interface{}{"path": "/nonexistent/path/image.png"})
			if mcpErr.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", mcpErr.Code)
			}
		})
	}
	callToolError(t, s, "dataset_list_files", map[string]interface{}{"dir": "/nonexistent/dir"})
	callToolError(t, s, "dataset_class_names", map[string]interface{}{"dir": "/nonexistent/dir"})
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New()
	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`{invalid`),
	})
	if resp == nil || resp.Error == nil {
		t.Fatal("Expected error response")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestExecuteTool_UnknownTool(t *testing.T) {
	s := New()

	_, err := s.executeTool("unknown_tool", json.RawMessage(`{}`))
	if err == nil {
		t.Error("executeTool should fail for unknown tool")
	}
}

func TestExecuteTool_InvalidJSON(t *testing.T) {
	s := New()

	_, err := s.executeTool("image_info", json.RawMessage(`{invalid`))
	if err == nil {
		t.Error("executeTool should fail for invalid JSON")
	}
}
