package client

import "google.golang.org/genai"

// ReviewResponseSchema describes the issue list returned by a review call.
func ReviewResponseSchema() *genai.Schema {
	anchor := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"type":   {Type: genai.TypeString, Enum: []string{"rect", "point"}},
			"x":      {Type: genai.TypeNumber},
			"y":      {Type: genai.TypeNumber},
			"width":  {Type: genai.TypeNumber},
			"height": {Type: genai.TypeNumber},
			"label":  {Type: genai.TypeString},
		},
		Required: []string{"type", "x", "y"},
	}
	issue := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":             {Type: genai.TypeString},
			"screenId":       {Type: genai.TypeString},
			"title":          {Type: genai.TypeString},
			"severity":       {Type: genai.TypeString, Enum: []string{"critical", "attention", "info"}},
			"confidence":     {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
			"evidence":       {Type: genai.TypeString},
			"impact":         {Type: genai.TypeString},
			"recommendation": {Type: genai.TypeString},
			"edgeCases":      {Type: genai.TypeString},
			"anchors":        {Type: genai.TypeArray, Items: anchor},
		},
		Required: []string{"title", "severity", "evidence", "impact", "recommendation", "anchors"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"issues": {Type: genai.TypeArray, Items: issue},
		},
		Required: []string{"issues"},
	}
}

// RecheckResponseSchema describes the verdict of a single-issue recheck.
func RecheckResponseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"status":   {Type: genai.TypeString, Enum: []string{"open", "fixed"}},
			"evidence": {Type: genai.TypeString},
		},
		Required: []string{"status"},
	}
}
