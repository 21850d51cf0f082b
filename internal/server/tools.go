package server

import "github.com/ironsheep/suptools/internal/imaging"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Shared property schemas.
var (
	imagePathProperty = map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
	seedProperty = map[string]interface{}{
		"type":        "integer",
		"description": "Optional random seed, for reproducible results. Default: the configured seed, or random if 0",
	}
	augmentationsProperty = map[string]interface{}{
		"type": "array",
		"items": map[string]interface{}{
			"type": "string",
			"enum": imaging.AugmentationNames(),
		},
		"description": "Augmentations applied in order. Default: the configured training augmentations",
	}
)

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Dataset Files
		{
			Name:        "dataset_list_files",
			Description: "List the files of a directory, sorted. Use recurse to include sub-directories.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to list. Default: the configured data directory",
					},
					"recurse": map[string]interface{}{
						"type":        "boolean",
						"description": "Include files in sub-directories. Default true",
						"default":     true,
					},
					"images_only": map[string]interface{}{
						"type":        "boolean",
						"description": "Only list files with an image extension (png, jpg, jpeg, gif, bmp, webp). Default true",
						"default":     true,
					},
				},
			},
		},
		{
			Name:        "dataset_class_names",
			Description: "Get the class names of a dataset directory (its sub-directories) with the number of images of each class.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Dataset directory, with one sub-directory per class. Default: the configured data directory",
					},
				},
			},
		},
		{
			Name:        "dataset_split",
			Description: "Randomly split the images of a dataset directory into training and validation sets, and optionally copy them to dest/train/<class> and dest/valid/<class>.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Dataset directory, with one sub-directory per class. Default: the configured data directory",
					},
					"valid_pct": map[string]interface{}{
						"type":        "number",
						"description": "Fraction of the images held out for validation, in [0, 1]. Default 0.2",
						"default":     0.2,
					},
					"seed": seedProperty,
					"dest": map[string]interface{}{
						"type":        "string",
						"description": "Optional directory where the split is copied",
					},
					"list_files": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the file lists in the result. Default false",
						"default":     false,
					},
				},
			},
		},
		{
			Name:        "dataset_show_batch",
			Description: "Read one batch of a dataset, as a training pipeline would see it (augmented and resized), and return up to 25 of its images in a 5x5 grid titled with their class, as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Image files, directories or glob patterns. Default: the configured data directory",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"train", "valid", "test", "predict"},
						"description": "Dataset mode: train shuffles and uses the training augmentations, the others the validation ones. Default train",
						"default":     "train",
					},
					"class_names": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Class names. Default: the configured ones, or the sub-directories of the data directory",
					},
					"img_size": map[string]interface{}{
						"type":        "integer",
						"description": "Side of the images, in pixels. Default: the configured size",
					},
					"seed": seedProperty,
				},
			},
		},

		// Single Images
		{
			Name:        "image_info",
			Description: "Get the dimensions, format and file size of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": imagePathProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_stats",
			Description: "Compute the per-channel mean and standard deviation of an image's pixels (on the [0,1] scale) and its most frequent colors.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": imagePathProperty,
					"count": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colors to return",
						"default":     imaging.DefaultDominantColors,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_augment",
			Description: "Apply random augmentations to an image and resize it, and return the result as base64-encoded PNG. Use this to check that augmentations look reasonable.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":          imagePathProperty,
					"augmentations": augmentationsProperty,
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Side of the output image, in pixels. Default: the configured image size",
					},
					"seed": seedProperty,
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_central_crop",
			Description: "Crop the largest centered square of an image, optionally resize it, and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": imagePathProperty,
					"size": map[string]interface{}{
						"type":        "integer",
						"description": "Optional side of the output image, in pixels. Default: no resizing",
					},
				},
				"required": []string{"path"},
			},
		},

		// Training
		{
			Name:        "history_plot",
			Description: "Plot training and validation accuracy and loss per epoch from a JSON training history ({\"accuracy\": [...], \"val_accuracy\": [...], \"loss\": [...], \"val_loss\": [...]}), returned as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the JSON history file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
