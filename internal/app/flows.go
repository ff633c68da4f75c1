package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Acrellux/vctools-sub001/internal/domain/enums"
	"github.com/Acrellux/vctools-sub001/internal/domain/model"
	"github.com/Acrellux/vctools-sub001/internal/services/confirm"
	"github.com/Acrellux/vctools-sub001/internal/services/history"
	"github.com/Acrellux/vctools-sub001/internal/ui"
)

func (a *App) registerRoutes(r *Router) {
	r.Handle(enums.FlowConfirm, a.handleConfirmCallback)
	r.Handle(enums.FlowHistory, a.handleHistoryCallback)
	r.Handle(enums.FlowExport, a.handleExportCallback)
	r.Handle(enums.FlowConsent, a.handleConsentCallback)
	r.Handle(enums.FlowGrant, a.handleGrantCallback)
	r.Handle(enums.FlowRole, a.handleRoleCallback)
	r.Handle(enums.FlowBot, a.handleBotSettingsCallback)

	r.HandleInit(enums.SetupGeneral, a.handleInitGeneral)
	r.HandleInit(enums.SetupChannels, a.handleInitChannels)
	r.HandleInit(enums.SetupRoles, a.handleInitRoles)
}

func (a *App) handleConfirmCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	if len(control.Args) < 1 {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}
	token := control.Args[0]

	approve := false
	switch control.Action {
	case "approve":
		approve = true
	case "cancel":
	default:
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}

	outcome, err := a.ResolveConfirmation(ctx, token, approve, cb.ActorID, cb.GuildID)
	switch {
	case errors.Is(err, confirm.ErrExpired):
		reply.Send(ctx, ui.MsgConfirmGone)
		return
	case errors.Is(err, confirm.ErrWrongGuild):
		reply.Send(ctx, ui.MsgWrongServer)
		return
	case errors.Is(err, confirm.ErrNotRequester):
		reply.Send(ctx, ui.MsgNotYourPanel)
		return
	case err != nil:
		a.logger.Error("resolve confirmation", "error", err, "guild_id", cb.GuildID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}

	if !outcome.Approved {
		reply.Send(ctx, "Confirmation cancelled. Nothing was done.")
		return
	}
	if outcome.Failed > 0 {
		reply.Send(ctx, fmt.Sprintf("Banned %d member(s); %d failed. Check the log for details.", outcome.Executed, outcome.Failed))
		return
	}
	reply.Send(ctx, fmt.Sprintf("Banned %d member(s).", outcome.Executed))
}

func (a *App) handleHistoryCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	if len(control.Args) < 3 {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}
	identity := control.Args[0]

	page, err := strconv.Atoi(control.Args[1])
	if err != nil {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}
	issuedUnix, err := strconv.ParseInt(control.Args[2], 10, 64)
	if err != nil {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}
	if time.Since(time.Unix(issuedUnix, 0)) > history.ControlTTL {
		reply.Disable(ctx)
		reply.Send(ctx, ui.MsgExpiredPanel)
		return
	}

	records, err := a.historyService.Load(ctx, cb.GuildID, identity, 100)
	if err != nil {
		a.logger.Error("load history page", "error", err, "guild_id", cb.GuildID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}

	pages := history.PageCount(len(records))
	next, err := history.Navigate(control.Action, page, pages)
	if err != nil {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}

	content, shown := a.historyService.RenderPage(ctx, cb.GuildID, records, next)
	reply.Update(ctx, content, historyNavButtons(control.OwnerID, identity, shown, pages, issuedUnix))
}

// historyNavButtons re-binds the pager controls to the page being shown so
// the next press navigates relative to it.
func historyNavButtons(ownerID, identity string, page, pages int, issuedUnix int64) []ui.Button {
	controlID := func(action string) string {
		return fmt.Sprintf("%s:%s:%s:%s:%d:%d", enums.FlowHistory, action, ownerID, identity, page, issuedUnix)
	}
	atFirst := page <= 0
	atLast := page >= pages-1
	return []ui.Button{
		{Label: "First", CustomID: controlID(history.NavFirst), Disabled: atFirst},
		{Label: "Prev", CustomID: controlID(history.NavPrev), Disabled: atFirst},
		{Label: "Next", CustomID: controlID(history.NavNext), Disabled: atLast},
		{Label: "Last", CustomID: controlID(history.NavLast), Disabled: atLast},
	}
}

func (a *App) handleExportCallback(ctx context.Context, cb Callback, _ model.ControlID, reply *Reply) {
	if !a.exportService.Enabled() {
		reply.Send(ctx, "Exports are not configured on this deployment.")
		return
	}

	result, err := a.exportService.GuildLedgerCSV(ctx, cb.GuildID)
	if err != nil {
		a.logger.Error("export guild ledger", "error", err, "guild_id", cb.GuildID)
		reply.Send(ctx, ui.MsgNothingHere)
		return
	}

	reply.Send(ctx, fmt.Sprintf("Exported %d record(s). Download (link valid for 15 minutes): %s", result.Records, result.URL))
}

// Consent is the first setup step: the operator accepts or declines the
// moderation feature set for the guild.
func (a *App) handleConsentCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	switch control.Action {
	case "accept":
		flow := model.FlowContext{
			ActorID: cb.ActorID,
			GuildID: cb.GuildID,
			Flow:    enums.SetupChannels,
			Step:    "pick-log-channel",
		}
		if err := a.flowService.Set(ctx, flow); err != nil {
			a.logger.Error("start setup flow", "error", err, "actor_id", cb.ActorID)
			reply.Send(ctx, ui.MsgUnexpected())
			return
		}
		reply.Send(ctx, "Moderation enabled. Next: pick the channel for moderation notices.")
	case "decline":
		if err := a.flowService.Clear(ctx, cb.ActorID); err != nil {
			a.logger.Warn("clear setup flow", "error", err, "actor_id", cb.ActorID)
		}
		reply.Send(ctx, "Setup cancelled. Run setup again when ready.")
	default:
		reply.Send(ctx, ui.MsgStaleControl)
	}
}

// Grant assigns a moderation tier to a role as part of the roles setup.
func (a *App) handleGrantCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	if len(control.Args) < 1 {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}
	roleID := control.Args[0]

	flow, active, err := a.flowService.Get(ctx, cb.ActorID)
	if err != nil {
		a.logger.Error("load grant flow", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	if !active || flow.GuildID != cb.GuildID {
		reply.Send(ctx, ui.MsgExpiredPanel)
		return
	}

	if flow.Extra == nil {
		flow.Extra = make(map[string]string)
	}
	flow.Extra["grant:"+roleID] = control.Action
	if err := a.flowService.Set(ctx, flow); err != nil {
		a.logger.Error("save grant flow", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}

	reply.Send(ctx, fmt.Sprintf("Role granted %s access. Pick another role or finish.", control.Action))
}

// Role-selection steps route here directly, bypassing the init context.
func (a *App) handleRoleCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	if len(control.Args) < 1 {
		reply.Send(ctx, ui.MsgStaleControl)
		return
	}

	flow, active, err := a.flowService.Get(ctx, cb.ActorID)
	if err != nil {
		a.logger.Error("load role flow", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	if !active {
		flow = model.FlowContext{ActorID: cb.ActorID, GuildID: cb.GuildID, Flow: enums.SetupRoles}
	}

	flow.Step = "role:" + control.Args[0]
	if err := a.flowService.Set(ctx, flow); err != nil {
		a.logger.Error("save role flow", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}

	reply.Send(ctx, "Role selected. Choose the access level to grant.")
}

func (a *App) handleBotSettingsCallback(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	switch control.Action {
	case "reset":
		if err := a.flowService.Clear(ctx, cb.ActorID); err != nil {
			a.logger.Warn("reset bot settings flow", "error", err, "actor_id", cb.ActorID)
		}
		reply.Send(ctx, "Bot settings reset. Run setup to configure again.")
	case "status":
		reply.Send(ctx, "Bot settings are up to date.")
	default:
		reply.Send(ctx, ui.MsgStaleControl)
	}
}

func (a *App) handleInitGeneral(ctx context.Context, cb Callback, _ model.ControlID, reply *Reply) {
	flow := model.FlowContext{
		ActorID: cb.ActorID,
		GuildID: cb.GuildID,
		Flow:    enums.SetupGeneral,
		Step:    "consent",
	}
	if err := a.flowService.Set(ctx, flow); err != nil {
		a.logger.Error("start general setup", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	reply.Send(ctx, "Setup started. Accept the moderation terms to continue.")
}

func (a *App) handleInitChannels(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	flow, active, err := a.flowService.Get(ctx, cb.ActorID)
	if err != nil || !active {
		a.handleInitGeneral(ctx, cb, control, reply)
		return
	}

	flow.Flow = enums.SetupRoles
	flow.Step = "pick-roles"
	if err := a.flowService.Set(ctx, flow); err != nil {
		a.logger.Error("advance channels setup", "error", err, "actor_id", cb.ActorID)
		reply.Send(ctx, ui.MsgUnexpected())
		return
	}
	reply.Send(ctx, "Channels saved. Next: grant access levels to your staff roles.")
}

func (a *App) handleInitRoles(ctx context.Context, cb Callback, control model.ControlID, reply *Reply) {
	_, active, err := a.flowService.Get(ctx, cb.ActorID)
	if err != nil || !active {
		a.handleInitGeneral(ctx, cb, control, reply)
		return
	}

	if err := a.flowService.Clear(ctx, cb.ActorID); err != nil {
		a.logger.Warn("finish roles setup", "error", err, "actor_id", cb.ActorID)
	}
	reply.Send(ctx, "Setup complete. Moderation commands are live.")
}
