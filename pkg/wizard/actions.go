package wizard

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/Sriram-PR/source-wizard/pkg/curl"
	"github.com/Sriram-PR/source-wizard/pkg/interact"
	"github.com/Sriram-PR/source-wizard/pkg/jsonpath"
	"github.com/Sriram-PR/source-wizard/pkg/match"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/schedule"
	"github.com/Sriram-PR/source-wizard/pkg/stop"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// ActionType names an action in the JSON envelope.
type ActionType string

const (
	ActionSetBasics              ActionType = "set_basics"
	ActionSetDiscoveryEnabled    ActionType = "set_discovery_enabled"
	ActionSetDiscoveryTechnique  ActionType = "set_discovery_technique"
	ActionUpdateDiscoveryConfig  ActionType = "update_discovery_config"
	ActionSetLinkFilters         ActionType = "set_link_filters"
	ActionSetDedupe              ActionType = "set_dedupe"
	ActionSetPopupHandling       ActionType = "set_popup_handling"
	ActionEditScrapeStop         ActionType = "edit_scrape_stop"
	ActionEditAPIStop            ActionType = "edit_api_stop"
	ActionSetAPIRequest          ActionType = "set_api_request"
	ActionImportCurl             ActionType = "import_curl"
	ActionSetItemsPath           ActionType = "set_items_path"
	ActionSetFieldSelections     ActionType = "set_field_selections"
	ActionSetExtractionEnabled   ActionType = "set_extraction_enabled"
	ActionSetExtractionTechnique ActionType = "set_extraction_technique"
	ActionUpdateExtractionConfig ActionType = "update_extraction_config"
	ActionSetSelectors           ActionType = "set_selectors"
	ActionSetLLM                 ActionType = "set_llm"
	ActionSetSave                ActionType = "set_save"
	ActionSetTrigger             ActionType = "set_trigger"
	ActionSetRateLimits          ActionType = "set_rate_limits"
	ActionSetTestResult          ActionType = "set_test_result"
)

// Phase selects the discovery or extraction half of a config.
type Phase string

const (
	PhaseDiscovery  Phase = "discovery"
	PhaseExtraction Phase = "extraction"
)

func (p Phase) valid() error {
	if p != PhaseDiscovery && p != PhaseExtraction {
		return fmt.Errorf("%w: phase %q must be %q or %q", utils.ErrInvalidAction, p, PhaseDiscovery, PhaseExtraction)
	}
	return nil
}

// Action is one typed edit of a SourceConfig.
type Action interface {
	Type() ActionType
	apply(cfg *models.SourceConfig) error
}

// Reduce applies a to a copy of cfg. On error the returned config is cfg unchanged.
func Reduce(cfg models.SourceConfig, a Action) (models.SourceConfig, error) {
	if a == nil {
		return cfg, fmt.Errorf("%w: nil action", utils.ErrInvalidAction)
	}
	next, err := cfg.Clone()
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", a.Type(), err)
	}
	if err := a.apply(&next); err != nil {
		return cfg, fmt.Errorf("%s: %w", a.Type(), err)
	}
	return next, nil
}

// --- basics ---

type SetBasics struct {
	Name    string `json:"name"`
	SiteURL string `json:"siteUrl"`
}

func (SetBasics) Type() ActionType { return ActionSetBasics }
func (a SetBasics) apply(cfg *models.SourceConfig) error {
	cfg.Name = a.Name
	cfg.SiteURL = a.SiteURL
	return nil
}

// --- discovery ---

type SetDiscoveryEnabled struct {
	Enabled bool `json:"enabled"`
}

func (SetDiscoveryEnabled) Type() ActionType { return ActionSetDiscoveryEnabled }
func (a SetDiscoveryEnabled) apply(cfg *models.SourceConfig) error {
	cfg.Discovery.Enabled = a.Enabled
	return nil
}

// SetDiscoveryTechnique switches technique and installs its default config.
type SetDiscoveryTechnique struct {
	Technique models.Technique `json:"technique"`
}

func (SetDiscoveryTechnique) Type() ActionType { return ActionSetDiscoveryTechnique }
func (a SetDiscoveryTechnique) apply(cfg *models.SourceConfig) error {
	d, err := cfg.Discovery.WithTechnique(a.Technique)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, err)
	}
	cfg.Discovery = d
	return nil
}

// UpdateDiscoveryConfig merges Patch (a JSON object) into the active discovery config.
// A changed popupHandling block recompiles the interaction script.
type UpdateDiscoveryConfig struct {
	Patch json.RawMessage `json:"patch"`
}

func (UpdateDiscoveryConfig) Type() ActionType { return ActionUpdateDiscoveryConfig }
func (a UpdateDiscoveryConfig) apply(cfg *models.SourceConfig) error {
	sc, isScrape := cfg.ScrapeDiscovery()
	var prev interact.PopupHandlingState
	if isScrape {
		prev = sc.Render.PopupHandling.Clone()
	}
	if err := mergeJSON(a.Patch, cfg.Discovery.Config); err != nil {
		return err
	}
	if isScrape && !samePopups(prev, sc.Render.PopupHandling) {
		next := sc.Render.PopupHandling
		sc.Render.PopupHandling = prev
		recompilePopups(sc, next)
	}
	return nil
}

type SetLinkFilters struct {
	Filters match.Filters `json:"filters"`
}

func (SetLinkFilters) Type() ActionType { return ActionSetLinkFilters }
func (a SetLinkFilters) apply(cfg *models.SourceConfig) error {
	switch dc := cfg.Discovery.Config.(type) {
	case *models.ScrapeDiscoveryConfig:
		dc.LinkFiltering = a.Filters
	case *models.SitemapDiscoveryConfig:
		dc.LinkFiltering = a.Filters
	default:
		return fmt.Errorf("%w: link filters need html, js or sitemap discovery", utils.ErrInvalidAction)
	}
	return nil
}

type SetDedupe struct {
	Dedupe match.Dedupe `json:"dedupe"`
}

func (SetDedupe) Type() ActionType { return ActionSetDedupe }
func (a SetDedupe) apply(cfg *models.SourceConfig) error {
	sc, ok := cfg.ScrapeDiscovery()
	if !ok {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrNotScrape)
	}
	sc.Dedupe = a.Dedupe
	return nil
}

// SetPopupHandling replaces the popup state and recompiles the render script:
// lines compiled from the previous state are removed, lines added by hand stay.
type SetPopupHandling struct {
	State interact.PopupHandlingState `json:"state"`
}

func (SetPopupHandling) Type() ActionType { return ActionSetPopupHandling }
func (a SetPopupHandling) apply(cfg *models.SourceConfig) error {
	sc, ok := cfg.ScrapeDiscovery()
	if !ok {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrNotScrape)
	}
	recompilePopups(sc, a.State)
	return nil
}

func samePopups(a, b interact.PopupHandlingState) bool {
	return reflect.DeepEqual(a.Clone(), b.Clone())
}

func recompilePopups(sc *models.ScrapeDiscoveryConfig, next interact.PopupHandlingState) {
	prev := sc.Render.PopupHandling
	sc.Render.Interactions = interact.Recompile(sc.Render.Interactions, prev, next)
	sc.Render.CustomJS = interact.RecompileCustomJS(sc.Render.CustomJS, prev, next)
	sc.Render.PopupHandling = next
}

// StopOp is an edit on a stop condition list.
type StopOp string

const (
	StopAdd        StopOp = "add"
	StopUpdate     StopOp = "update" // Condition is merged into the existing entry
	StopChangeType StopOp = "change_type"
	StopRemove     StopOp = "remove"
	StopOperator   StopOp = "operator"
)

type EditScrapeStop struct {
	Op            StopOp                   `json:"op"`
	Index         int                      `json:"index"`
	ConditionType stop.ScrapeConditionType `json:"conditionType,omitempty"`
	Condition     json.RawMessage          `json:"condition,omitempty"`
	Operator      stop.Operator            `json:"operator,omitempty"`
}

func (EditScrapeStop) Type() ActionType { return ActionEditScrapeStop }
func (a EditScrapeStop) apply(cfg *models.SourceConfig) error {
	sc, ok := cfg.ScrapeDiscovery()
	if !ok {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrNotScrape)
	}
	cur := sc.Pagination.Stop
	var next stop.ScrapeStopConfig
	var err error
	switch a.Op {
	case StopAdd:
		next, err = cur.Add(a.ConditionType)
	case StopUpdate:
		next, err = cur.Patch(a.Index, a.Condition)
	case StopChangeType:
		next, err = cur.ChangeType(a.Index, a.ConditionType)
	case StopRemove:
		next, err = cur.Remove(a.Index)
	case StopOperator:
		next, err = cur.WithOperator(a.Operator)
	default:
		return fmt.Errorf("%w: stop op %q", utils.ErrInvalidAction, a.Op)
	}
	if err != nil {
		return err
	}
	sc.Pagination.Stop = next
	return nil
}

type EditAPIStop struct {
	Op            StopOp                `json:"op"`
	Index         int                   `json:"index"`
	ConditionType stop.APIConditionType `json:"conditionType,omitempty"`
	Condition     json.RawMessage       `json:"condition,omitempty"`
	Operator      stop.Operator         `json:"operator,omitempty"`
}

func (EditAPIStop) Type() ActionType { return ActionEditAPIStop }
func (a EditAPIStop) apply(cfg *models.SourceConfig) error {
	ac, ok := cfg.APIDiscovery()
	if !ok {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrNotAPI)
	}
	cur := ac.Stop
	var next stop.APIStopConfig
	var err error
	switch a.Op {
	case StopAdd:
		next, err = cur.Add(a.ConditionType)
	case StopUpdate:
		next, err = cur.Patch(a.Index, a.Condition)
	case StopChangeType:
		next, err = cur.ChangeType(a.Index, a.ConditionType)
	case StopRemove:
		next, err = cur.Remove(a.Index)
	case StopOperator:
		next, err = cur.WithOperator(a.Operator)
	default:
		return fmt.Errorf("%w: stop op %q", utils.ErrInvalidAction, a.Op)
	}
	if err != nil {
		return err
	}
	ac.Stop = next
	return nil
}

// --- api request, cURL import and field selection ---

func apiRequest(cfg *models.SourceConfig, phase Phase) (*models.APIRequest, error) {
	if err := phase.valid(); err != nil {
		return nil, err
	}
	if phase == PhaseDiscovery {
		if ac, ok := cfg.Discovery.Config.(*models.APIDiscoveryConfig); ok {
			return &ac.Request, nil
		}
	} else if ac, ok := cfg.Extraction.Config.(*models.APIExtractionConfig); ok {
		return &ac.Request, nil
	}
	return nil, fmt.Errorf("%w: %s %w", utils.ErrInvalidAction, phase, ErrNotAPI)
}

type SetAPIRequest struct {
	Phase   Phase             `json:"phase"`
	Request models.APIRequest `json:"request"`
}

func (SetAPIRequest) Type() ActionType { return ActionSetAPIRequest }
func (a SetAPIRequest) apply(cfg *models.SourceConfig) error {
	req, err := apiRequest(cfg, a.Phase)
	if err != nil {
		return err
	}
	*req = a.Request
	return nil
}

// ImportCurl replaces the API request of Phase with one parsed from pasted cURL text.
type ImportCurl struct {
	Phase Phase  `json:"phase"`
	Raw   string `json:"raw"`
}

func (ImportCurl) Type() ActionType { return ActionImportCurl }
func (a ImportCurl) apply(cfg *models.SourceConfig) error {
	req, err := apiRequest(cfg, a.Phase)
	if err != nil {
		return err
	}
	parsed := curl.Parse(a.Raw)
	if parsed == nil {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrUnparsedCurl)
	}
	*req = models.APIRequest{
		URL:     parsed.URL,
		Method:  parsed.Method,
		Headers: parsed.Headers,
		Cookies: parsed.Cookies,
		Body:    parsed.Body,
	}
	return nil
}

type SetItemsPath struct {
	Path     string `json:"path"`
	URLField string `json:"urlField,omitempty"`
}

func (SetItemsPath) Type() ActionType { return ActionSetItemsPath }
func (a SetItemsPath) apply(cfg *models.SourceConfig) error {
	ac, ok := cfg.APIDiscovery()
	if !ok {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, ErrNotAPI)
	}
	ac.ItemsPath = a.Path
	if a.URLField != "" {
		ac.URLField = a.URLField
	}
	return nil
}

type SetFieldSelections struct {
	Phase  Phase                     `json:"phase"`
	Fields []jsonpath.FieldSelection `json:"fields"`
}

func (SetFieldSelections) Type() ActionType { return ActionSetFieldSelections }
func (a SetFieldSelections) apply(cfg *models.SourceConfig) error {
	if err := a.Phase.valid(); err != nil {
		return err
	}
	fields := append([]jsonpath.FieldSelection{}, a.Fields...)
	if a.Phase == PhaseDiscovery {
		if ac, ok := cfg.APIDiscovery(); ok {
			ac.Fields = fields
			return nil
		}
	} else if ac, ok := cfg.Extraction.Config.(*models.APIExtractionConfig); ok {
		ac.Fields = fields
		return nil
	}
	return fmt.Errorf("%w: %s %w", utils.ErrInvalidAction, a.Phase, ErrNotAPI)
}

// --- extraction ---

type SetExtractionEnabled struct {
	Enabled bool `json:"enabled"`
}

func (SetExtractionEnabled) Type() ActionType { return ActionSetExtractionEnabled }
func (a SetExtractionEnabled) apply(cfg *models.SourceConfig) error {
	cfg.Extraction.Enabled = a.Enabled
	return nil
}

type SetExtractionTechnique struct {
	Technique models.Technique `json:"technique"`
}

func (SetExtractionTechnique) Type() ActionType { return ActionSetExtractionTechnique }
func (a SetExtractionTechnique) apply(cfg *models.SourceConfig) error {
	e, err := cfg.Extraction.WithTechnique(a.Technique)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrInvalidAction, err)
	}
	cfg.Extraction = e
	return nil
}

// UpdateExtractionConfig merges Patch (a JSON object) into the active extraction config.
type UpdateExtractionConfig struct {
	Patch json.RawMessage `json:"patch"`
}

func (UpdateExtractionConfig) Type() ActionType { return ActionUpdateExtractionConfig }
func (a UpdateExtractionConfig) apply(cfg *models.SourceConfig) error {
	return mergeJSON(a.Patch, cfg.Extraction.Config)
}

// SetSelectors replaces the legacy field selectors of html/js extraction.
type SetSelectors struct {
	Selectors map[string]string `json:"selectors"`
}

func (SetSelectors) Type() ActionType { return ActionSetSelectors }
func (a SetSelectors) apply(cfg *models.SourceConfig) error {
	pc, ok := cfg.Extraction.Config.(*models.PageExtractionConfig)
	if !ok {
		return fmt.Errorf("%w: selectors need html or js extraction", utils.ErrInvalidAction)
	}
	pc.Selectors = make(map[string]string, len(a.Selectors))
	for k, v := range a.Selectors {
		pc.Selectors[k] = v
	}
	return nil
}

type SetLLM struct {
	LLM models.LLMParsing `json:"llm"`
}

func (SetLLM) Type() ActionType { return ActionSetLLM }
func (a SetLLM) apply(cfg *models.SourceConfig) error {
	cfg.Extraction.LLM = a.LLM
	return nil
}

// --- save, schedule, test results ---

type SetSave struct {
	Save models.Save `json:"save"`
}

func (SetSave) Type() ActionType { return ActionSetSave }
func (a SetSave) apply(cfg *models.SourceConfig) error {
	cfg.Save = a.Save
	return nil
}

// SetTrigger sets the trigger of Phase. In cron mode the expression is Expression
// when given, otherwise it is built from Cron.
type SetTrigger struct {
	Phase      Phase              `json:"phase"`
	Mode       models.TriggerMode `json:"mode"`
	Cron       schedule.CronState `json:"cron"`
	Expression string             `json:"expression,omitempty"`
}

func (SetTrigger) Type() ActionType { return ActionSetTrigger }
func (a SetTrigger) apply(cfg *models.SourceConfig) error {
	if err := a.Phase.valid(); err != nil {
		return err
	}
	var trig models.Trigger
	switch a.Mode {
	case models.TriggerManual:
		trig = models.Trigger{Mode: models.TriggerManual}
	case models.TriggerCron:
		expr := a.Expression
		if expr == "" {
			expr = schedule.BuildCron(a.Cron)
		} else if err := schedule.Validate(expr); err != nil {
			return fmt.Errorf("%w: %w", utils.ErrInvalidAction, err)
		}
		trig = models.Trigger{Mode: models.TriggerCron, Cron: expr}
	default:
		return fmt.Errorf("%w: trigger mode %q", utils.ErrInvalidAction, a.Mode)
	}
	if a.Phase == PhaseDiscovery {
		cfg.Schedule.Discovery = trig
	} else {
		cfg.Schedule.Extraction = trig
	}
	return nil
}

type SetRateLimits struct {
	RateLimits models.RateLimits `json:"rateLimits"`
}

func (SetRateLimits) Type() ActionType { return ActionSetRateLimits }
func (a SetRateLimits) apply(cfg *models.SourceConfig) error {
	cfg.Schedule.RateLimits = a.RateLimits
	return nil
}

// SetTestResult caches a test outcome for Phase; a nil Result clears it.
type SetTestResult struct {
	Phase  Phase              `json:"phase"`
	Result *models.TestResult `json:"result"`
}

func (SetTestResult) Type() ActionType { return ActionSetTestResult }
func (a SetTestResult) apply(cfg *models.SourceConfig) error {
	if err := a.Phase.valid(); err != nil {
		return err
	}
	if cfg.TestResults == nil {
		cfg.TestResults = &models.TestResults{}
	}
	if a.Phase == PhaseDiscovery {
		cfg.TestResults.Discovery = a.Result
	} else {
		cfg.TestResults.Extraction = a.Result
	}
	if cfg.TestResults.Discovery == nil && cfg.TestResults.Extraction == nil {
		cfg.TestResults = nil
	}
	return nil
}

func mergeJSON(patch json.RawMessage, into any) error {
	if len(patch) == 0 {
		return fmt.Errorf("%w: empty patch", utils.ErrInvalidAction)
	}
	if into == nil {
		return fmt.Errorf("%w: no active config to patch", utils.ErrInvalidAction)
	}
	if err := json.Unmarshal(patch, into); err != nil {
		return fmt.Errorf("%w: patch: %w", utils.ErrParsing, err)
	}
	return nil
}
