package sqlinline

const QEnqueueJob = `--sql 768d15fd-6c92-4ee6-ae8c-1d2bf62ee970
insert into generation_jobs(id, project_id, user_id, status, progress, current_step, created_at, updated_at)
values (gen_random_uuid(), $1::uuid, $2::text, 'QUEUED', 0, 'Queued', now(), now())
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
  finished_at;
`

const QSelectJobByID = `--sql e17d9b02-8331-4c1c-b71c-1786248100a9
select
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
from generation_jobs
where id = $1::uuid
limit 1;
`

const QSelectLatestJobForProject = `--sql d7034a17-707d-4e30-a576-29673f75a2d0
select
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
from generation_jobs
where project_id = $1::uuid
order by created_at desc
limit 1;
`

const QSelectJobStatus = `--sql 28cbb09f-e29d-41ee-a62a-4edec1446167
select status
from generation_jobs
where id = $1::uuid;
`

const QAdvanceJob = `--sql 0190557f-6554-4f2e-a9f3-351351ea62d7
update generation_jobs
set status = $3::text,
    progress = greatest(progress, $4::int),
    current_step = $5::text,
    updated_at = now()
where id = $1::uuid
  and status = $2::text;
`

const QAppendJobCost = `--sql a7291f66-2651-4c12-932d-85da1db6aade
update generation_jobs
set cost_ledger = cost_ledger || jsonb_build_array($2::jsonb),
    updated_at = now()
where id = $1::uuid
  and not exists (
    select 1
    from jsonb_array_elements(cost_ledger) as entry
    where entry->>'step' = $3::text
  );
`

const QAddAbandonedCost = `--sql 45d38226-a406-45b5-857a-3bf32bdec9fa
update generation_jobs
set abandoned_cost_usd = abandoned_cost_usd + $2::double precision,
    updated_at = now()
where id = $1::uuid;
`

const QSaveJobPlan = `--sql d7f26806-8378-4c26-93bf-c98d83d1df6a
update generation_jobs
set scene_plan = $2::jsonb,
    updated_at = now()
where id = $1::uuid;
`

const QCompleteJob = `--sql 89951a01-c038-4ec6-9ca2-2dde2e291463
update generation_jobs
set status = 'COMPLETED',
    progress = 100,
    current_step = 'Completed',
    outputs = coalesce($2::jsonb, '{}'::jsonb),
    finished_at = now(),
    updated_at = now()
where id = $1::uuid
  and status = 'RENDERING';
`

const QFailJob = `--sql 80917ada-d658-4924-ab1a-b00da5ed52df
update generation_jobs
set status = 'FAILED',
    current_step = 'Failed',
    error_kind = $2::text,
    error_message = $3::text,
    finished_at = now(),
    updated_at = now()
where id = $1::uuid
  and status not in ('COMPLETED', 'FAILED', 'CANCELLED');
`

const QCancelJob = `--sql 9414eadf-8b71-4e64-a55a-991884f6d20a
update generation_jobs
set status = 'CANCELLED',
    current_step = 'Cancelled',
    finished_at = now(),
    updated_at = now()
where id = $1::uuid
  and status not in ('COMPLETED', 'FAILED', 'CANCELLED');
`

const QReapStaleJobs = `--sql 9ca2c00b-2448-460d-94fc-431b41f9959f
update generation_jobs
set status = 'FAILED',
    current_step = 'Failed',
    error_kind = 'timeout',
    error_message = $2::text,
    finished_at = now(),
    updated_at = now()
where status not in ('COMPLETED', 'FAILED', 'CANCELLED')
  and started_at is not null
  and started_at < $1::timestamptz
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
  finished_at;
`
