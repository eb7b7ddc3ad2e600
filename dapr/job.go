// Package dapr runs extractions as Dapr jobs so the Dapr scheduler owns the
// daily timetable.
package dapr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/dapr/go-sdk/service/common"
	daprs "github.com/dapr/go-sdk/service/grpc"
	common2 "github.com/researchaccelerator-hub/youtube-video-stats/common"
	"github.com/researchaccelerator-hub/youtube-video-stats/crawler"
	"github.com/researchaccelerator-hub/youtube-video-stats/crawler/youtube"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/anypb"
)

// TaskExtract is the only task a job event runs.
const TaskExtract = "extract"

// JobScheduler is the part of the Dapr client used to manage jobs.
type JobScheduler interface {
	ScheduleJobAlpha1(ctx context.Context, req *daprc.Job) error
	GetJobAlpha1(ctx context.Context, name string) (*daprc.Job, error)
}

// HandlerRegistry is the part of a Dapr service the App registers on.
type HandlerRegistry interface {
	AddServiceInvocationHandler(name string, fn common.ServiceInvocationHandler) error
	AddJobEventHandler(name string, fn common.JobEventHandler) error
}

// RunFunc runs the pipeline once for a configuration.
type RunFunc func(ctx context.Context, cfg common2.Config) (*crawler.RunResult, error)

// JobData is the payload carried by a scheduled job. Empty fields fall back
// to the service configuration.
type JobData struct {
	Task          string `json:"task"`
	ChannelHandle string `json:"channelHandle,omitempty"`
	OutputDir     string `json:"outputDir,omitempty"`

	// Used by the scheduleJob invocation only.
	Name     string `json:"name,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	DueTime  string `json:"dueTime,omitempty"`
}

// App holds the state shared by the Dapr handlers.
type App struct {
	scheduler  JobScheduler
	baseConfig common2.Config // Store CLI configuration for job handlers
	run        RunFunc
}

// NewApp returns an App that schedules through scheduler and runs jobs with run.
func NewApp(scheduler JobScheduler, baseConfig common2.Config, run RunFunc) *App {
	return &App{
		scheduler:  scheduler,
		baseConfig: baseConfig,
		run:        run,
	}
}

// Register adds the scheduleJob and getJob invocation handlers and the job
// event handler for the configured job name.
func (a *App) Register(server HandlerRegistry) error {
	if err := server.AddServiceInvocationHandler("scheduleJob", a.scheduleJob); err != nil {
		return fmt.Errorf("error adding scheduleJob handler: %w", err)
	}
	if err := server.AddServiceInvocationHandler("getJob", a.getJob); err != nil {
		return fmt.Errorf("error adding getJob handler: %w", err)
	}
	if err := server.AddJobEventHandler(a.baseConfig.JobName, a.handleJob); err != nil {
		return fmt.Errorf("failed to register job event handler: %w", err)
	}
	log.Info().Str("job_name", a.baseConfig.JobName).Msg("Registered job handler")
	return nil
}

// StartDaprMode serves Dapr job events on cfg.DaprPort until ctx is done.
func StartDaprMode(ctx context.Context, cfg common2.Config) error {
	log.Info().Int("port", cfg.DaprPort).Msg("Starting extractor in DAPR job mode")

	daprClient, err := daprc.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create Dapr client: %w", err)
	}
	defer daprClient.Close()

	server, err := daprs.NewService(fmt.Sprintf(":%d", cfg.DaprPort))
	if err != nil {
		return fmt.Errorf("failed to create Dapr service: %w", err)
	}

	app := NewApp(daprClient, cfg, youtube.Launch)
	if err := app.Register(server); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Int("port", cfg.DaprPort).Msg("Starting server")
		if err := server.Start(); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Stopping server")
		return server.GracefulStop()
	})
	return g.Wait()
}

// ScheduleDaily registers the recurring extraction job with the Dapr scheduler.
func ScheduleDaily(ctx context.Context, cfg common2.Config) error {
	daprClient, err := daprc.NewClient()
	if err != nil {
		return fmt.Errorf("failed to create Dapr client: %w", err)
	}
	defer daprClient.Close()

	return ScheduleDailyJob(ctx, daprClient, cfg)
}

// ScheduleDailyJob schedules cfg.JobName on cfg.JobSchedule for cfg.ChannelHandle.
func ScheduleDailyJob(ctx context.Context, scheduler JobScheduler, cfg common2.Config) error {
	job, err := newJob(JobData{
		Task:          TaskExtract,
		ChannelHandle: cfg.ChannelHandle,
		Name:          cfg.JobName,
		Schedule:      cfg.JobSchedule,
	})
	if err != nil {
		return err
	}
	if err := scheduler.ScheduleJobAlpha1(ctx, job); err != nil {
		log.Error().Err(err).Str("job_name", job.Name).Msg("Failed to schedule job")
		return fmt.Errorf("failed to schedule job %s: %w", job.Name, err)
	}
	log.Info().Str("job_name", job.Name).Str("schedule", job.Schedule).Msg("Job scheduled")
	return nil
}

func newJob(data JobData) (*daprc.Job, error) {
	if data.Name == "" {
		return nil, errors.New("job name is required")
	}
	if data.Schedule == "" && data.DueTime == "" {
		return nil, fmt.Errorf("job %s needs a schedule or a due time", data.Name)
	}
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling job content: %w", err)
	}
	return &daprc.Job{
		Name:     data.Name,
		Schedule: data.Schedule,
		DueTime:  data.DueTime,
		Data:     &anypb.Any{Value: content},
	}, nil
}

// handleJob runs one extraction for a job event.
func (a *App) handleJob(ctx context.Context, job *common.JobEvent) error {
	if job == nil {
		return errors.New("no job event")
	}
	log.Info().Str("job_type", job.JobType).Msg("Job event received")

	var jobData JobData
	if len(job.Data) > 0 {
		if err := json.Unmarshal(job.Data, &jobData); err != nil {
			return fmt.Errorf("failed to unmarshal job payload: %w", err)
		}
	}
	if jobData.Task != "" && jobData.Task != TaskExtract {
		log.Warn().Str("task", jobData.Task).Msg("Ignoring job with unknown task")
		return nil
	}

	cfg := mergeConfigWithJobData(a.baseConfig, jobData)
	if _, err := a.run(ctx, cfg); err != nil {
		log.Error().Err(err).Str("channel_handle", cfg.ChannelHandle).Msg("Extraction job failed")
		return err
	}
	return nil
}

// scheduleJob schedules the job described by the invocation payload. Name and
// schedule default to the service configuration.
func (a *App) scheduleJob(ctx context.Context, in *common.InvocationEvent) (*common.Content, error) {
	if in == nil {
		return nil, errors.New("no invocation parameter")
	}

	var jobData JobData
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &jobData); err != nil {
			log.Error().Err(err).Msg("Failed to unmarshal job")
			return nil, err
		}
	}
	if jobData.Task == "" {
		jobData.Task = TaskExtract
	}
	if jobData.Name == "" {
		jobData.Name = a.baseConfig.JobName
	}
	if jobData.Schedule == "" && jobData.DueTime == "" {
		jobData.Schedule = a.baseConfig.JobSchedule
	}

	job, err := newJob(jobData)
	if err != nil {
		return nil, err
	}
	if err := a.scheduler.ScheduleJobAlpha1(ctx, job); err != nil {
		log.Error().Err(err).Str("job_name", job.Name).Msg("Failed to schedule job")
		return nil, err
	}
	log.Info().Str("job_name", job.Name).Msg("Job scheduled")

	return &common.Content{
		Data:        job.Data.Value,
		ContentType: "application/json",
	}, nil
}

// getJob returns the payload of the job named by the invocation data, or of
// the configured job when no name is given.
func (a *App) getJob(ctx context.Context, in *common.InvocationEvent) (*common.Content, error) {
	if in == nil {
		return nil, errors.New("no invocation parameter")
	}
	name := string(in.Data)
	if name == "" {
		name = a.baseConfig.JobName
	}

	job, err := a.scheduler.GetJobAlpha1(ctx, name)
	if err != nil {
		log.Error().Err(err).Str("job_name", name).Msg("Failed to get job")
		return nil, err
	}

	out := &common.Content{
		ContentType: in.ContentType,
		DataTypeURL: in.DataTypeURL,
	}
	if job != nil && job.Data != nil {
		out.Data = job.Data.Value
	}
	return out, nil
}

// mergeConfigWithJobData overrides baseConfig with the non-empty fields of jobData.
func mergeConfigWithJobData(baseConfig common2.Config, jobData JobData) common2.Config {
	mergedConfig := baseConfig
	if jobData.ChannelHandle != "" {
		mergedConfig.ChannelHandle = jobData.ChannelHandle
	}
	if jobData.OutputDir != "" {
		mergedConfig.OutputDir = jobData.OutputDir
	}

	log.Debug().
		Str("merged_channel_handle", mergedConfig.ChannelHandle).
		Str("merged_output_dir", mergedConfig.OutputDir).
		Msg("Merged CLI configuration with job data")
	return mergedConfig
}
