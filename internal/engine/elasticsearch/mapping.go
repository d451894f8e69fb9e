package elasticsearch

// buildIndexMapping returns the JSON mapping applied to every new index
// generation: Russian-language analysis for text fields, keyword subfields
// for exact matching and sorting, and a completion field for suggestions.
// Pricing and stock columns are never part of this mapping.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "russian_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "russian_stop", "russian_stemmer"]
        }
      },
      "filter": {
        "russian_stop": {
          "type": "stop",
          "stopwords": "_russian_"
        },
        "russian_stemmer": {
          "type": "stemmer",
          "language": "russian"
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":              { "type": "keyword" },
      "external_id":     { "type": "keyword" },
      "sku":             { "type": "keyword" },
      "name":            { "type": "text", "analyzer": "russian_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":     { "type": "text", "analyzer": "russian_analyzer" },
      "brand_id":        { "type": "keyword" },
      "brand_name":      { "type": "text", "analyzer": "russian_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "series_id":       { "type": "keyword" },
      "series_name":     { "type": "text", "analyzer": "russian_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "category_ids":    { "type": "keyword" },
      "category_names":  { "type": "text", "analyzer": "russian_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "image_urls":      { "type": "keyword", "index": false },
      "attributes":      { "type": "object", "enabled": false },
      "document_counts": { "type": "object", "enabled": false },
      "popularity":      { "type": "double" },
      "has_images":      { "type": "boolean" },
      "has_description": { "type": "boolean" },
      "search_text":     { "type": "text", "analyzer": "russian_analyzer" },
      "suggest":         { "type": "completion" },
      "created_at":      { "type": "date" },
      "updated_at":      { "type": "date" }
    }
  }
}`
}
