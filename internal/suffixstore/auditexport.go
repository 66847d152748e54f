package suffixstore

import (
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"
)

// auditRecordSchema describes one file-table row exported by ExportAudit,
// encoded with the same goavro.NewCodec + goavro.NewOCFWriter pairing used
// for any Avro container-file export.
const auditRecordSchema = `
{
	"type": "record",
	"name": "IndexedFile",
	"fields": [
		{"name": "path", "type": "string"},
		{"name": "mtime", "type": "long"},
		{"name": "fileIndex", "type": "long"}
	]
}
`

// ExportAudit writes a read-only avro OCF snapshot of the file table to
// path — a supplementary export format alongside the mandatory binary
// database, useful for feeding the index's current membership into
// external auditing or reporting tools without speaking the engine's own
// wire format.
func (e *Engine) ExportAudit(path string) error {
	codec, err := goavro.NewCodec(auditRecordSchema)
	if err != nil {
		return resourceErr("export-audit", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return ioErr("export-audit", err)
	}
	defer f.Close()

	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return resourceErr("export-audit", err)
	}

	records := make([]interface{}, 0, e.files.count())
	for i, fe := range e.files.entries {
		records = append(records, map[string]interface{}{
			"path":      fe.path,
			"mtime":     int64(fe.mtime),
			"fileIndex": int64(i),
		})
	}
	if err := writer.Append(records); err != nil {
		return ioErr("export-audit", fmt.Errorf("append: %w", err))
	}
	return nil
}
