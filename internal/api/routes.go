package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/audit"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/compliance"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/escalation"
	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/pipeline"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.Route(ws.GET("/health").
		To(handler.Health).
		Doc("Health check").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}).
		Returns(200, "OK", HealthResponse{}))

	ws.Route(ws.POST("/negotiations").
		To(handler.Negotiate).
		Doc("Run one claim through the negotiation pipeline").
		Metadata(restfulspec.KeyOpenAPITags, []string{"negotiation"}).
		Reads(NegotiateRequest{}).
		Writes(pipeline.Result{}).
		Returns(200, "OK", pipeline.Result{}).
		Returns(400, "Bad Request", ErrorResponse{}))

	ws.Route(ws.POST("/compliance/check").
		To(handler.CheckCompliance).
		Doc("Check a settlement amount against jurisdiction rules").
		Metadata(restfulspec.KeyOpenAPITags, []string{"compliance"}).
		Reads(ComplianceRequest{}).
		Writes(compliance.Report{}).
		Returns(200, "OK", compliance.Report{}).
		Returns(400, "Bad Request", ErrorResponse{}))

	ws.Route(ws.POST("/escalation/evaluate").
		To(handler.EvaluateEscalation).
		Doc("Evaluate escalation triggers for a claim").
		Metadata(restfulspec.KeyOpenAPITags, []string{"escalation"}).
		Reads(EvaluateRequest{}).
		Writes(escalation.ClaimEvaluation{}).
		Returns(200, "OK", escalation.ClaimEvaluation{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.Route(ws.GET("/audit/runs").
		To(handler.Runs).
		Doc("List stored audit trails").
		Metadata(restfulspec.KeyOpenAPITags, []string{"audit"}).
		Writes(RunsResponse{}).
		Returns(200, "OK", RunsResponse{}))

	runID := ws.PathParameter("plan_run_id", "Plan run id returned as audit_trail_id").DataType("string")

	ws.Route(ws.GET("/audit/{plan_run_id}/report").
		To(handler.Report).
		Doc("Compliance report for a run").
		Metadata(restfulspec.KeyOpenAPITags, []string{"audit"}).
		Param(runID).
		Writes(audit.Report{}).
		Returns(200, "OK", audit.Report{}).
		Returns(404, "Run Not Found", ErrorResponse{}))

	ws.Route(ws.GET("/audit/{plan_run_id}/export").
		To(handler.Export).
		Doc("Export a run's audit entries").
		Metadata(restfulspec.KeyOpenAPITags, []string{"audit"}).
		Param(runID).
		Writes([]audit.Entry{}).
		Returns(200, "OK", []audit.Entry{}).
		Returns(404, "Run Not Found", ErrorResponse{}))

	ws.Route(ws.GET("/audit/{plan_run_id}/verify").
		To(handler.Verify).
		Doc("Verify a run's hash chain").
		Metadata(restfulspec.KeyOpenAPITags, []string{"audit"}).
		Param(runID).
		Writes(VerifyResponse{}).
		Returns(200, "OK", VerifyResponse{}).
		Returns(404, "Run Not Found", ErrorResponse{}))

	ws.Route(ws.GET("/sessions").
		To(handler.Sessions).
		Doc("List stored negotiation sessions").
		Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
		Writes(SessionsResponse{}).
		Returns(200, "OK", SessionsResponse{}))

	ws.Route(ws.GET("/sessions/{plan_run_id}").
		To(handler.Session).
		Doc("Conversation state of a run").
		Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
		Param(runID).
		Writes(SessionResponse{}).
		Returns(200, "OK", SessionResponse{}).
		Returns(404, "Session Not Found", ErrorResponse{}))

	ws.Route(ws.DELETE("/sessions/{plan_run_id}").
		To(handler.EndSession).
		Doc("End a session").
		Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
		Param(runID).
		Returns(204, "No Content", nil).
		Returns(404, "Session Not Found", ErrorResponse{}))

	ws.Route(ws.POST("/sessions/{plan_run_id}/turns").
		To(handler.AddTurns).
		Doc("Add conversation turns to a session and negotiate its claim again").
		Metadata(restfulspec.KeyOpenAPITags, []string{"sessions"}).
		Param(runID).
		Reads(TurnRequest{}).
		Writes(pipeline.Result{}).
		Returns(200, "OK", pipeline.Result{}).
		Returns(400, "Bad Request", ErrorResponse{}).
		Returns(404, "Session Not Found", ErrorResponse{}).
		Returns(409, "Session Has No Claim", ErrorResponse{}))

	container.Add(ws)
}
