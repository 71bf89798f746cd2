package assets

import _ "embed"

// ModelsData holds the raw JSON catalog of vision-capable models.
//
//go:embed models.json
var ModelsData []byte
