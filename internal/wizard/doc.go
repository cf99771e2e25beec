// Package wizard drives a production through its ordered steps.
//
// A Production owns the wizard state, the frozen segment list and the segment
// tracker. The Runner executes one step at a time against the configured
// collaborators, checkpointing after every mutation so an interrupted
// production resumes exactly where it stopped:
//
//   - news_fetch, news_select, script_generate and script_review are single
//     calls whose result is stored as step data
//   - audio_generate and video_generate fan out over segments through a bounded
//     errgroup, retrying each unit until its attempt budget is spent
//   - render_final builds the timeline and waits for the render job
//   - publish uploads the rendered video, or is skipped when disabled
//
// Running a completed step is a no-op, so Run can be called repeatedly.
package wizard
