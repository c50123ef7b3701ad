package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/analyzer"
	"github.com/ludo-technologies/ucover/internal/config"
	"github.com/ludo-technologies/ucover/internal/logging"
	"github.com/ludo-technologies/ucover/internal/parser"
	"github.com/ludo-technologies/ucover/internal/version"
)

// ModelServiceImpl builds project manifests from disassembly dumps
type ModelServiceImpl struct {
	progress domain.ProgressManager
}

// NewModelService creates a model service; pm may be nil
func NewModelService(pm domain.ProgressManager) *ModelServiceImpl {
	if pm == nil {
		pm = &NoOpProgressManager{}
	}
	return &ModelServiceImpl{
		progress: pm,
	}
}

// dumpParser returns the parser for a request; strict parsing fails on
// fields a newer disassembler may have added
func dumpParser(strict bool) *parser.Parser {
	if strict {
		return parser.NewStrictParser()
	}
	return parser.NewParser()
}

// methodJob is one method body waiting to be modelled into a slot
type methodJob struct {
	asm   *domain.Assembly
	class *domain.Class
	slot  int
	body  *parser.MethodBody
	files analyzer.FileResolver
}

// BuildProject parses every dump, then models each assembly.
// Ids are assigned sequentially before methods are built in parallel,
// so the manifest is identical across runs.
func (s *ModelServiceImpl) BuildProject(ctx context.Context, dumpPaths []string, req domain.ModelRequest) (*domain.ModelResponse, error) {
	if len(dumpPaths) == 0 {
		return nil, domain.NewInvalidInputError("no disassembly dumps to model", nil)
	}

	filters, err := ParseFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	if req.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	dumps, err := s.parseDumps(ctx, dumpPaths, req)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		ProjectID:   NewProjectID(),
		ProjectPath: req.OutputPath,
	}
	response := &domain.ModelResponse{
		Project:     project,
		GeneratedAt: time.Now().Format(time.RFC3339),
		Version:     version.GetVersion(),
	}

	assemblyIDs := analyzer.NewSequence(1)
	fileIDs := analyzer.NewSequence(1)
	var jobs []methodJob

	for _, dump := range dumps {
		asm, asmJobs := s.registerAssembly(dump, req, filters, assemblyIDs, fileIDs)
		project.Assemblies = append(project.Assemblies, asm)
		jobs = append(jobs, asmJobs...)

		if asm.IsSkipped() {
			logging.Logger().Info("assembly skipped",
				zap.String("assembly", asm.FullName),
				zap.String("reason", string(asm.SkipReason)))
		}
	}

	warnings, err := s.buildMethods(ctx, jobs, req)
	if err != nil {
		return nil, err
	}
	response.Warnings = warnings
	response.Stats = CollectModelStats(project)

	logging.Logger().Info("project model built",
		zap.String("project_id", project.ProjectID),
		zap.Int("assemblies", response.Stats.Assemblies),
		zap.Int("methods", response.Stats.Methods),
		zap.Int("failed_methods", response.Stats.FailedMethods))

	return response, nil
}

// parseDumps reads all dumps concurrently and keeps input order
func (s *ModelServiceImpl) parseDumps(ctx context.Context, paths []string, req domain.ModelRequest) ([]*parser.Assembly, error) {
	dumps := make([]*parser.Assembly, len(paths))
	index := make(map[string]int, len(paths))
	for i, p := range paths {
		index[p] = i
	}

	executor := NewParallelExecutorWithProgress(&config.PerformanceConfig{
		MaxGoroutines:  req.MaxGoroutines,
		TimeoutSeconds: req.TimeoutSeconds,
	}, s.progress, "Parsing dumps")
	p := dumpParser(req.StrictParsing)

	err := executor.Execute(ctx, fileTasks(paths, func(_ context.Context, path string) error {
		asm, err := p.ParseFile(path)
		if err != nil {
			return err
		}
		dumps[index[path]] = asm
		return nil
	}))
	if err != nil {
		return nil, domain.NewParseError("disassembly dumps", err)
	}
	return dumps, nil
}

// registerAssembly creates the assembly with its id, skip reason, classes
// and files, and returns the methods still to build
func (s *ModelServiceImpl) registerAssembly(dump *parser.Assembly, req domain.ModelRequest, filters []*AssemblyFilter,
	assemblyIDs, fileIDs *analyzer.Sequence) (*domain.Assembly, []methodJob) {

	binaryPath := dump.Path
	if binaryPath == "" {
		binaryPath = dump.Source
	}

	asm := &domain.Assembly{
		AssemblyID: assemblyIDs.Next(),
		FullName:   dump.Name,
		Paths:      domain.NewAssemblyPaths(binaryPath, dump.HasSymbols),
		Hash:       dump.Hash,
		Files:      []domain.SourceFile{},
		Classes:    []*domain.Class{},
	}
	if asm.Hash == "" {
		asm.Hash = assemblyHash(binaryPath, dump.Source)
	}
	asm.SkipReason = SkipReasonFor(dump, req)

	for _, t := range dump.Types {
		asm.Classes = append(asm.Classes, &domain.Class{
			Name:       t.Name,
			Methods:    []*domain.Method{},
			SkipReason: domain.SkipReasonNone,
		})
	}
	ApplyFilters(asm, filters)
	if !asm.IsSkipped() {
		asm.SkipReason = fileSkipReason(dump, req)
	}

	if asm.IsSkipped() {
		asm.Classes = []*domain.Class{}
		return asm, nil
	}

	files := analyzer.NewFileTable(fileIDs)
	var jobs []methodJob
	for ti := range dump.Types {
		class := asm.Classes[ti]
		if class.IsSkipped() {
			continue
		}
		methods := dump.Types[ti].Methods
		class.Methods = make([]*domain.Method, len(methods))
		for mi := range methods {
			files.RegisterMethod(&methods[mi])
			jobs = append(jobs, methodJob{
				asm:   asm,
				class: class,
				slot:  mi,
				body:  &methods[mi],
				files: files,
			})
		}
	}
	asm.Files = files.Files()
	return asm, jobs
}

// buildMethods models every job into its slot. Each goroutine writes only
// its own slot, and the file tables are read-only by now.
func (s *ModelServiceImpl) buildMethods(ctx context.Context, jobs []methodJob, req domain.ModelRequest) ([]string, error) {
	if len(jobs) == 0 {
		return nil, nil
	}

	limit := req.MaxGoroutines
	if limit <= 0 {
		limit = runtime.NumCPU()
	}

	task := s.progress.StartTask("Building methods", len(jobs))
	defer task.Complete()

	failures := make([]error, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			defer task.Increment(1)

			method, err := analyzer.BuildMethod(job.body, job.files)
			if err == nil {
				job.class.Methods[job.slot] = method
				return nil
			}

			if req.OnMethodError != domain.MethodErrorSkip {
				return fmt.Errorf("assembly %s: %w", job.asm.FullName, err)
			}
			failures[i] = err
			job.class.Methods[job.slot] = &domain.Method{
				Name:           job.body.Name,
				MethodID:       job.body.Token,
				Sections:       []domain.CodeSection{},
				Conditions:     []domain.Condition{},
				SequencePoints: []domain.SequencePoint{},
				SkipReason:     domain.SkipReasonBuildError,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var warnings []string
	for i, err := range failures {
		if err == nil {
			continue
		}
		logging.Logger().Warn("method skipped",
			zap.String("assembly", jobs[i].asm.FullName),
			zap.String("method", jobs[i].body.Name),
			zap.Error(err))
		warnings = append(warnings, fmt.Sprintf("%s: method %s skipped: %v", jobs[i].asm.FullName, jobs[i].body.Name, err))
	}
	return warnings, nil
}

// SkipReasonFor decides whether a dumped assembly is instrumented
func SkipReasonFor(dump *parser.Assembly, req domain.ModelRequest) domain.SkipReason {
	name, _, _ := strings.Cut(dump.Name, ",")
	name = strings.TrimSpace(name)

	for _, prefix := range req.TestFrameworkAssemblies {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return domain.SkipReasonTestAssembly
		}
	}
	if !req.DisableDefaultFilters {
		for _, pattern := range req.DefaultDisabledAssemblies {
			if MatchesWildcard(pattern, name) {
				return domain.SkipReasonFilter
			}
		}
	}
	return fileSkipReason(dump, req)
}

// fileSkipReason checks the binary itself, after name-based filtering
func fileSkipReason(dump *parser.Assembly, req domain.ModelRequest) domain.SkipReason {
	if domain.IsBackupPath(dump.Path) {
		return domain.SkipReasonBackupFile
	}
	if req.SymbolsRequired && !dump.HasSymbols {
		return domain.SkipReasonNoPdb
	}
	return domain.SkipReasonNone
}

// CollectModelStats counts the entities of a project
func CollectModelStats(project *domain.Project) domain.ModelStats {
	var stats domain.ModelStats
	for _, asm := range project.Assemblies {
		stats.Assemblies++
		if asm.IsSkipped() {
			stats.SkippedAssemblies++
			continue
		}
		for _, c := range asm.Classes {
			stats.Classes++
			for _, m := range c.Methods {
				stats.Methods++
				if m.SkipReason == domain.SkipReasonBuildError {
					stats.FailedMethods++
				}
				stats.Sections += len(m.Sections)
				stats.Conditions += len(m.Conditions)
				stats.SequencePoints += len(m.SequencePoints)
			}
		}
	}
	return stats
}

// NewProjectID returns a random 128-bit id in hex
func NewProjectID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// assemblyHash hashes the binary when present, else the dump it came from
func assemblyHash(binaryPath, dumpPath string) string {
	for _, p := range []string{binaryPath, dumpPath} {
		if p == "" {
			continue
		}
		if sum, err := fileSHA1(p); err == nil {
			return FormatHash(sum)
		}
	}
	return ""
}

func fileSHA1(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// FormatHash renders bytes as dash-separated uppercase hex pairs
func FormatHash(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, "-")
}

var _ domain.ModelService = (*ModelServiceImpl)(nil)
