package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for event documents.
// Titles and descriptions get English stemming; game names use the simple
// analyzer so "GoldenEye" is not stemmed; type is an exact keyword.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	titleFieldMapping.Store = true
	titleFieldMapping.IncludeTermVectors = true // For highlighting
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	gameFieldMapping := bleve.NewTextFieldMapping()
	gameFieldMapping.Analyzer = simple.Name
	gameFieldMapping.Store = true
	gameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("game", gameFieldMapping)

	// Description - searchable but not stored
	descFieldMapping := bleve.NewTextFieldMapping()
	descFieldMapping.Analyzer = en.AnalyzerName
	descFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("description", descFieldMapping)

	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	typeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	docMapping.AddFieldMappingsAt("team_event", bleve.NewBooleanFieldMapping())

	startFieldMapping := bleve.NewNumericFieldMapping()
	startFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("start", startFieldMapping)

	endFieldMapping := bleve.NewNumericFieldMapping()
	endFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("end", endFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
