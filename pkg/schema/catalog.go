package schema

// Pricing is the cost per million tokens.
type Pricing struct {
	Input    float64  `json:"input" yaml:"input" validate:"gte=0"`
	Output   float64  `json:"output" yaml:"output" validate:"gte=0"`
	Cached   *float64 `json:"cached" yaml:"cached,omitempty" validate:"omitempty,gte=0"`
	Currency string   `json:"currency" yaml:"currency"`
}

// Limit is a rate limit rule. Type is "requests" or "tokens", Window is in seconds.
type Limit struct {
	Type   string `json:"type" yaml:"type" validate:"oneof=requests tokens"`
	Limit  int    `json:"limit" yaml:"limit" validate:"gt=0"`
	Window int    `json:"window" yaml:"window" validate:"gt=0"`
}

const (
	LimitRequests = "requests"
	LimitTokens   = "tokens"
)

// Valid reports whether the rule can be enforced.
func (l Limit) Valid() bool {
	return (l.Type == LimitRequests || l.Type == LimitTokens) && l.Limit > 0 && l.Window > 0
}

// Context is the context window of a model.
type Context struct {
	MaxInput  int  `json:"maxInput" yaml:"maxInput" validate:"gt=0"`
	MaxOutput *int `json:"maxOutput" yaml:"maxOutput,omitempty" validate:"omitempty,gt=0"`
}

type ModelFeatures struct {
	ToolCalling   *bool `json:"toolCalling,omitempty" yaml:"toolCalling,omitempty"`
	Reasoning     *bool `json:"reasoning,omitempty" yaml:"reasoning,omitempty"`
	Search        *bool `json:"search,omitempty" yaml:"search,omitempty"`
	CodeExecution *bool `json:"codeExecution,omitempty" yaml:"codeExecution,omitempty"`
	Vision        *bool `json:"vision,omitempty" yaml:"vision,omitempty"`
}

type ProviderFeatures struct {
	Streaming   *bool `json:"streaming,omitempty" yaml:"streaming,omitempty"`
	ToolCalling *bool `json:"toolCalling,omitempty" yaml:"toolCalling,omitempty"`
	JSONMode    *bool `json:"jsonMode,omitempty" yaml:"jsonMode,omitempty"`
}

// Endpoints holds the primary (OpenAI compatible) URL and an optional Anthropic style URL.
type Endpoints struct {
	OpenAI    string  `json:"openai" yaml:"openai" validate:"omitempty,http_url"`
	Anthropic *string `json:"anthropic" yaml:"anthropic,omitempty" validate:"omitempty,http_url"`
}

type Credentials struct {
	APIKeys []string `json:"apiKeys" yaml:"apiKeys" validate:"unique"`
}

// Model is a single offering under a provider.
type Model struct {
	ID         string         `json:"id" yaml:"id" validate:"required,max=200"`
	Name       string         `json:"name" yaml:"name" validate:"max=200"`
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Parameters *string        `json:"parameters" yaml:"parameters,omitempty"`
	Pricing    Pricing        `json:"pricing" yaml:"pricing"`
	Context    Context        `json:"context" yaml:"context"`
	Modalities []string       `json:"modalities" yaml:"modalities" validate:"min=1"`
	Features   *ModelFeatures `json:"features,omitempty" yaml:"features,omitempty"`
	Limits     []Limit        `json:"limits,omitempty" yaml:"limits,omitempty" validate:"omitempty,dive"`
}

// Provider is a configured LLM API source and its models.
type Provider struct {
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name" validate:"required,max=100"`
	Enabled     bool             `json:"enabled" yaml:"enabled"`
	Credentials Credentials      `json:"credentials" yaml:"credentials"`
	Endpoints   Endpoints        `json:"endpoints" yaml:"endpoints"`
	Limits      []Limit          `json:"limits" yaml:"limits" validate:"omitempty,dive"`
	Features    ProviderFeatures `json:"features" yaml:"features"`
	Models      []Model          `json:"models" yaml:"models"`
	IsCustom    bool             `json:"isCustom,omitempty" yaml:"isCustom,omitempty"`
}

// Metadata describes a backup document.
type Metadata struct {
	CreatedAt   string  `json:"createdAt"`
	ModifiedAt  string  `json:"modifiedAt"`
	Generator   string  `json:"generator"`
	Description *string `json:"description,omitempty"`
}

// Document is the versioned backup/restore wire format.
type Document struct {
	Version   string     `json:"version"`
	Metadata  Metadata   `json:"metadata"`
	Providers []Provider `json:"providers"`
}

// FetchedModel is an entry of a remote /models listing.
type FetchedModel struct {
	ID          string `json:"id"`
	Object      string `json:"object,omitempty"`
	Created     int64  `json:"created,omitempty"`
	OwnedBy     string `json:"owned_by,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}
