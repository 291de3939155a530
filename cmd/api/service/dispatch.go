package service

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/genomeai/platform/cmd/api/models"
	commonmodels "github.com/genomeai/platform/common/models"
	"github.com/google/cel-go/cel"
)

const (
	defaultPipelineRepo     = "https://github.com/nf-core/sarek"
	defaultPipelineRevision = "3.5.1"
	defaultPipelineProfile  = "test,docker"

	// legacyPipelineID is the name prefix / repo suffix of the named pipeline
	legacyPipelineID = "nf-core/dna-seq"
)

// Target is a resolved runner call
type Target struct {
	Kind models.DispatchTarget
	Path string
	Body []byte // nil means no payload
}

// Classifier picks a dispatch target for a workflow from a boolean CEL rule
// over name, repo, version and revision. True selects the named pipeline.
type Classifier struct {
	rule string
	prg  cel.Program
}

// NewClassifier compiles rule. The rule must evaluate to a bool.
func NewClassifier(rule string) (*Classifier, error) {
	env, err := cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("repo", cel.StringType),
		cel.Variable("version", cel.StringType),
		cel.Variable("revision", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL env: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compilation error: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("dispatch rule must return bool, got %s", ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Classifier{rule: rule, prg: prg}, nil
}

// Classify evaluates the rule for one workflow registration
func (c *Classifier) Classify(name, repo, version, revision string) (models.DispatchTarget, error) {
	out, _, err := c.prg.Eval(map[string]interface{}{
		"name":     name,
		"repo":     repo,
		"version":  version,
		"revision": revision,
	})
	if err != nil {
		return "", fmt.Errorf("CEL evaluation error: %w", err)
	}

	named, ok := out.Value().(bool)
	if !ok {
		return "", fmt.Errorf("CEL expression did not return boolean, got %T", out.Value())
	}

	if named {
		return models.TargetNamedPipeline, nil
	}
	return models.TargetGenericSmoke, nil
}

// NamedPipelineTemplate builds the runner payload a named-pipeline workflow
// dispatches with: repo falls back to the default pipeline, revision to the
// workflow version and then the default release; stub mode is forced on.
func NamedPipelineTemplate(repo, revision, version string) map[string]interface{} {
	if strings.TrimSpace(repo) == "" {
		repo = defaultPipelineRepo
	}

	rev := strings.TrimSpace(revision)
	if rev == "" {
		rev = strings.TrimSpace(version)
	}
	if rev == "" {
		rev = defaultPipelineRevision
	}

	return map[string]interface{}{
		"repo":     repo,
		"revision": rev,
		"profile":  defaultPipelineProfile,
		"stub_run": true,
	}
}

// MergePayload applies override over template as an RFC 7386 merge patch
func MergePayload(template, override map[string]interface{}) (map[string]interface{}, error) {
	if len(override) == 0 {
		return template, nil
	}

	base, err := json.Marshal(template)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload template: %w", err)
	}
	patch, err := json.Marshal(override)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload override: %w", err)
	}

	merged, err := jsonpatch.MergePatch(base, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to merge payload: %w", err)
	}

	out := map[string]interface{}{}
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("failed to decode merged payload: %w", err)
	}
	return out, nil
}

// Route maps a workflow onto its runner call. It is total over the known
// targets; a workflow stored without a target falls back to RouteLegacy.
func Route(wf *models.Workflow) (Target, error) {
	switch wf.DispatchTarget {
	case models.TargetNamedPipeline:
		payload := wf.DispatchPayload
		if len(payload) == 0 {
			payload = NamedPipelineTemplate(deref(wf.Repo), deref(wf.Revision), wf.Version)
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return Target{}, fmt.Errorf("failed to encode dispatch payload: %w", err)
		}
		return Target{Kind: models.TargetNamedPipeline, Path: commonmodels.RunnerPathNFCoreDNASeq, Body: body}, nil

	case models.TargetGenericSmoke:
		return Target{Kind: models.TargetGenericSmoke, Path: commonmodels.RunnerPathContainerSmoke}, nil

	case "":
		return RouteLegacy(wf.Name, deref(wf.Repo), wf.Version, deref(wf.Revision))

	default:
		return Target{}, fmt.Errorf("unknown dispatch target %q on workflow %s", wf.DispatchTarget, wf.ID)
	}
}

// RouteLegacy is the name/repo string rule used before targets were stored
func RouteLegacy(name, repo, version, revision string) (Target, error) {
	if strings.HasPrefix(name, legacyPipelineID) || strings.HasSuffix(repo, legacyPipelineID) {
		body, err := json.Marshal(NamedPipelineTemplate(repo, revision, version))
		if err != nil {
			return Target{}, fmt.Errorf("failed to encode dispatch payload: %w", err)
		}
		return Target{Kind: models.TargetNamedPipeline, Path: commonmodels.RunnerPathNFCoreDNASeq, Body: body}, nil
	}
	return Target{Kind: models.TargetGenericSmoke, Path: commonmodels.RunnerPathContainerSmoke}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
