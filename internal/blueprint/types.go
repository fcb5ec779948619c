package blueprint

// Input is what the user supplies for one blueprint.
type Input struct {
	Goal         string `json:"goal"`
	Instructions string `json:"instructions,omitempty"` // overrides the refined prompt for part extraction
	RegexPrompt  string `json:"regexPrompt,omitempty"`  // overrides the refined prompt for regex generation
	Email        string `json:"email"`
}

// Blueprint holds every stage's labelled output.
type Blueprint struct {
	RefinedPrompt string `json:"refinedPrompt"`
	Parts         string `json:"parts"`
	Patterns      string `json:"patterns"`
}

// partsRequest is the document handed to the parts extractor.
type partsRequest struct {
	Instructions string `json:"instructions"`
	FileContent  string `json:"fileContent"`
}

// regexRequest is the document handed to the regex generator.
type regexRequest struct {
	Parts         string `json:"parts"`
	RefinedPrompt string `json:"refinedPrompt"`
}
