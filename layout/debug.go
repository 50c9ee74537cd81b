package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON 将最终文档（含页脚行）输出为 JSON，便于排查分页结果。
func WriteDebugJSON(doc *Document, path string) error {
	if doc == nil {
		return nil
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
