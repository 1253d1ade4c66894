package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ldi/campushelp/internal/advisory"
	"github.com/ldi/campushelp/internal/db"
	"github.com/ldi/campushelp/internal/lifecycle"
	"github.com/ldi/campushelp/internal/review"
	"github.com/ldi/campushelp/pkg/models"
)

// Services are the engines the tool handlers call into.
type Services struct {
	Engine   *lifecycle.Engine
	Registry *lifecycle.Registry
	Reviews  *review.Service
	Advisor  *advisory.Guard
	TopN     int
}

// NewServer creates a new MCP server.
func NewServer(svc Services) *server.MCPServer {
	s := server.NewMCPServer("CampusHelp", "0.1.0")

	// Members
	s.AddTool(mcp.NewTool("register_member",
		mcp.WithDescription("Register a new member with the default starting balance."),
		mcp.WithString("email", mcp.Description("Unique email address"), mcp.Required()),
		mcp.WithString("name", mcp.Description("Display name"), mcp.Required()),
		mcp.WithString("campus", mcp.Description("Home campus"), mcp.Required()),
		mcp.WithString("skills", mcp.Description("Comma separated skill tags")),
		mcp.WithString("department", mcp.Description("Department")),
		mcp.WithString("grade", mcp.Description("Grade or year")),
		mcp.WithBoolean("willing_cross_campus", mcp.Description("Whether the member helps on other campuses")),
	), registerMemberHandler(svc))

	s.AddTool(mcp.NewTool("list_members",
		mcp.WithDescription("List members."),
		mcp.WithBoolean("include_inactive", mcp.Description("Include deactivated members")),
	), listMembersHandler(svc))

	s.AddTool(mcp.NewTool("get_member",
		mcp.WithDescription("Get a member profile."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
	), getMemberHandler(svc))

	s.AddTool(mcp.NewTool("set_member_active",
		mcp.WithDescription("Activate or deactivate a member."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
		mcp.WithBoolean("active", mcp.Description("New state"), mcp.Required()),
	), setMemberActiveHandler(svc))

	// Task lifecycle
	s.AddTool(mcp.NewTool("create_task",
		mcp.WithDescription("Publish a task. The offered points are debited from the publisher immediately."),
		mcp.WithString("publisher_id", mcp.Description("Publisher member ID"), mcp.Required()),
		mcp.WithString("title", mcp.Description("Task title"), mcp.Required()),
		mcp.WithString("description", mcp.Description("Task description")),
		mcp.WithString("category", mcp.Description("Category (daily_support|study_help|campus_assist|skill_exchange|companionship)"), mcp.Required()),
		mcp.WithString("campus", mcp.Description("Campus the task happens on"), mcp.Required()),
		mcp.WithString("location", mcp.Description("Free text location")),
		mcp.WithNumber("points", mcp.Description("Points offered")),
		mcp.WithBoolean("is_urgent", mcp.Description("Whether the task is urgent")),
	), createTaskHandler(svc))

	s.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List tasks with optional filters."),
		mcp.WithString("status", mcp.Description("Filter by status")),
		mcp.WithString("category", mcp.Description("Filter by category")),
		mcp.WithString("campus", mcp.Description("Filter by campus")),
		mcp.WithString("publisher_id", mcp.Description("Filter by publisher")),
	), listTasksHandler(svc))

	s.AddTool(mcp.NewTool("get_task",
		mcp.WithDescription("Get a single task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), getTaskHandler(svc))

	s.AddTool(mcp.NewTool("apply_for_task",
		mcp.WithDescription("Apply to help with an open task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("applicant_id", mcp.Description("Applicant member ID"), mcp.Required()),
	), applyHandler(svc))

	s.AddTool(mcp.NewTool("list_task_applications",
		mcp.WithDescription("List the applications to a task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
	), listTaskApplicationsHandler(svc))

	s.AddTool(mcp.NewTool("accept_application",
		mcp.WithDescription("Accept one applicant; every other application is rejected."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("applicant_id", mcp.Description("Applicant to accept"), mcp.Required()),
		mcp.WithString("publisher_id", mcp.Description("Publisher making the decision"), mcp.Required()),
	), acceptApplicationHandler(svc))

	s.AddTool(mcp.NewTool("complete_task",
		mcp.WithDescription("Mark an in-progress task completed and pay the helper."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("member_id", mcp.Description("Publisher or helper reporting completion"), mcp.Required()),
	), completeTaskHandler(svc))

	s.AddTool(mcp.NewTool("cancel_task",
		mcp.WithDescription("Cancel an open task and refund its points."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("publisher_id", mcp.Description("Publisher member ID"), mcp.Required()),
	), cancelTaskHandler(svc))

	s.AddTool(mcp.NewTool("my_applications",
		mcp.WithDescription("List the tasks a member applied to."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
	), myApplicationsHandler(svc))

	s.AddTool(mcp.NewTool("my_published_tasks",
		mcp.WithDescription("List the tasks a member published."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
	), myPublishedTasksHandler(svc))

	// Reviews
	s.AddTool(mcp.NewTool("review_status",
		mcp.WithDescription("Check whether a member can review the other side of a completed task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
	), reviewStatusHandler(svc))

	s.AddTool(mcp.NewTool("submit_review",
		mcp.WithDescription("Rate the other participant of a completed task."),
		mcp.WithString("task_id", mcp.Description("Task ID"), mcp.Required()),
		mcp.WithString("reviewer_id", mcp.Description("Reviewer member ID"), mcp.Required()),
		mcp.WithString("reviewee_id", mcp.Description("Reviewee member ID"), mcp.Required()),
		mcp.WithNumber("rating", mcp.Description("Rating 1-5 in half-point steps"), mcp.Required()),
		mcp.WithString("comment", mcp.Description("Optional comment")),
	), submitReviewHandler(svc))

	s.AddTool(mcp.NewTool("reviews_for",
		mcp.WithDescription("List reviews a member received."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
	), reviewsForHandler(svc))

	// Matching and insights
	s.AddTool(mcp.NewTool("recommend_tasks",
		mcp.WithDescription("Rank open tasks for a member with a score breakdown."),
		mcp.WithString("member_id", mcp.Description("Member ID"), mcp.Required()),
		mcp.WithNumber("top_n", mcp.Description("How many tasks to return")),
	), recommendHandler(svc))

	s.AddTool(mcp.NewTool("platform_stats",
		mcp.WithDescription("Platform-wide counters."),
	), statsHandler(svc))

	s.AddTool(mcp.NewTool("suggest_description",
		mcp.WithDescription("Propose a clearer task description. Nothing is saved."),
		mcp.WithString("description", mcp.Description("Original description"), mcp.Required()),
	), suggestDescriptionHandler(svc))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func registerMemberHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, err := svc.Engine.RegisterMember(ctx, lifecycle.RegisterMemberInput{
			Email:       mcp.ParseString(request, "email", ""),
			Name:        mcp.ParseString(request, "name", ""),
			Campus:      mcp.ParseString(request, "campus", ""),
			Skills:      splitList(mcp.ParseString(request, "skills", "")),
			Department:  mcp.ParseString(request, "department", ""),
			Grade:       mcp.ParseString(request, "grade", ""),
			CrossCampus: mcp.ParseBoolean(request, "willing_cross_campus", false),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func listMembersHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		members, err := svc.Registry.Members(ctx, mcp.ParseBoolean(request, "include_inactive", false))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"members": members})
	}
}

func getMemberHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, err := svc.Registry.Member(ctx, mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func setMemberActiveHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := mcp.ParseString(request, "member_id", "")
		active := mcp.ParseBoolean(request, "active", true)
		if err := svc.Engine.SetMemberActive(ctx, id, active); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Member %s active=%t", id, active)), nil
	}
}

func createTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := svc.Engine.CreateTask(ctx, lifecycle.CreateTaskInput{
			PublisherID: mcp.ParseString(request, "publisher_id", ""),
			Title:       mcp.ParseString(request, "title", ""),
			Description: mcp.ParseString(request, "description", ""),
			Category:    models.Category(mcp.ParseString(request, "category", "")),
			Location:    mcp.ParseString(request, "location", ""),
			Campus:      mcp.ParseString(request, "campus", ""),
			Points:      mcp.ParseInt(request, "points", 0),
			Urgent:      mcp.ParseBoolean(request, "is_urgent", false),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func listTasksHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter := db.TaskFilter{
			Category:    models.Category(mcp.ParseString(request, "category", "")),
			Campus:      mcp.ParseString(request, "campus", ""),
			PublisherID: mcp.ParseString(request, "publisher_id", ""),
		}
		if status := mcp.ParseString(request, "status", ""); status != "" {
			s := models.TaskStatus(status)
			if !s.Valid() {
				return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
			}
			filter.Status = &s
		}

		tasks, err := svc.Registry.Tasks(ctx, filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": tasks})
	}
}

func getTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, err := svc.Registry.Task(ctx, mcp.ParseString(request, "task_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(v)
	}
}

func applyHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		app, err := svc.Engine.Apply(ctx,
			mcp.ParseString(request, "task_id", ""),
			mcp.ParseString(request, "applicant_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(app)
	}
}

func listTaskApplicationsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		apps, err := svc.Registry.TaskApplications(ctx, mcp.ParseString(request, "task_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"applications": apps})
	}
}

func acceptApplicationHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := svc.Engine.AcceptApplication(ctx,
			mcp.ParseString(request, "task_id", ""),
			mcp.ParseString(request, "applicant_id", ""),
			mcp.ParseString(request, "publisher_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(task)
	}
}

func completeTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := svc.Engine.CompleteTask(ctx,
			mcp.ParseString(request, "task_id", ""),
			mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(task)
	}
}

func cancelTaskHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		task, err := svc.Engine.CancelTask(ctx,
			mcp.ParseString(request, "task_id", ""),
			mcp.ParseString(request, "publisher_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(task)
	}
}

func myApplicationsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		views, err := svc.Registry.MemberApplications(ctx, mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": views})
	}
}

func myPublishedTasksHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		views, err := svc.Registry.PublishedTasks(ctx, mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"tasks": views})
	}
}

func reviewStatusHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := svc.Reviews.Status(ctx,
			mcp.ParseString(request, "task_id", ""),
			mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(st)
	}
}

func submitReviewHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r, err := svc.Reviews.Submit(ctx, review.SubmitInput{
			TaskID:     mcp.ParseString(request, "task_id", ""),
			ReviewerID: mcp.ParseString(request, "reviewer_id", ""),
			RevieweeID: mcp.ParseString(request, "reviewee_id", ""),
			Rating:     mcp.ParseFloat64(request, "rating", 0),
			Comment:    mcp.ParseString(request, "comment", ""),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(r)
	}
}

func reviewsForHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		views, err := svc.Reviews.For(ctx, mcp.ParseString(request, "member_id", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"reviews": views})
	}
}

func recommendHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topN := mcp.ParseInt(request, "top_n", svc.TopN)
		recs, err := svc.Registry.Recommend(ctx, mcp.ParseString(request, "member_id", ""), topN)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"recommendations": recs})
	}
}

func statsHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := svc.Registry.Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(stats)
	}
}

func suggestDescriptionHandler(svc Services) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if svc.Advisor == nil {
			return mcp.NewToolResultError("content advisory is not configured"), nil
		}
		out, err := svc.Advisor.Suggest(ctx, mcp.ParseString(request, "description", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]string{"suggested_description": out})
	}
}
