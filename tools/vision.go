package tools

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"

	"github.com/m4xw311/pengy/errors"
)

// VisionToolName is the tool whose data-URL result triggers an image summary.
const VisionToolName = "vision_judge"

// DataURLPrefix starts every image result of the vision tool.
const DataURLPrefix = "data:image/"

var imageMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// VisionJudgeTool loads an image and returns it as a data URL so a
// vision-capable model can look at it on the next step.
type VisionJudgeTool struct {
	base
	ws *Workspace
}

func NewVisionJudgeTool(ws *Workspace) *VisionJudgeTool {
	return &VisionJudgeTool{
		base: base{def: Definition{
			Name:        VisionToolName,
			Description: "Load an image so it can be analyzed. The image is summarized and the summary added to the conversation.",
			Parameters: []Parameter{
				{Name: "image_path", Type: "string", Description: "Path to the image file (png, jpg, jpeg, gif, webp)."},
				{Name: "screen_cap", Type: "boolean", Description: "Capture the screen instead of reading a file. Not supported in this build."},
			},
		}},
		ws: ws,
	}
}

func (t *VisionJudgeTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		ImagePath string   `json:"image_path"`
		ScreenCap flexBool `json:"screen_cap"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.ImagePath == "" {
		if in.ScreenCap {
			return "", errors.Errorf(errors.KindExecution, "Failed to execute vision_judge: screen capture is not supported")
		}
		return "", errors.Errorf(errors.KindExecution, "Failed to execute vision_judge: Either image_path or screen_cap must be provided")
	}
	abs, err := t.ws.CheckRead(in.ImagePath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.Errorf(errors.KindExecution, "Failed to execute vision_judge: Image file does not exist: %s", in.ImagePath)
		}
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "Failed to execute vision_judge"))
	}
	return ImageDataURL(in.ImagePath, data), nil
}

// ImageDataURL encodes data as a base64 data URL, picking the MIME type from
// the file extension (png when unknown).
func ImageDataURL(name string, data []byte) string {
	mime, ok := imageMIME[strings.ToLower(filepath.Ext(name))]
	if !ok {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
