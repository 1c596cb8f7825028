package sqlinline

// QClaimNextJob hands the oldest unclaimed QUEUED job to one worker. The
// status stays QUEUED; the orchestrator performs the first advance.
const QClaimNextJob = `--sql f2666a0f-30e2-401a-af5c-c7dce3aab42a
with next_job as (
    select id
    from generation_jobs
    where status = 'QUEUED'
      and started_at is null
    order by created_at asc
    for update skip locked
    limit 1
),
claimed as (
    update generation_jobs
    set started_at = now(),
        worker_id = $1::text,
        updated_at = now()
    where id in (select id from next_job)
    returning
      id::text,
      project_id::text,
      user_id,
      status,
      progress,
      current_step,
      cost_ledger,
      abandoned_cost_usd,
      error_kind,
      error_message,
      scene_plan,
      outputs,
      created_at,
      updated_at,
      started_at,
      finished_at
)
select * from claimed;
`
