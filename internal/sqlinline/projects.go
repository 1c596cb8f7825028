package sqlinline

const QInsertProject = `--sql 4413800e-957c-4a4b-999d-cdf72b824c70
insert into projects(
  id,
  user_id,
  title,
  brief,
  brand_name,
  primary_color,
  secondary_color,
  mood,
  duration_seconds,
  target_audience,
  product_image_url,
  status,
  storage_folder,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text,
  $7::text,
  $8::text,
  $9::int,
  $10::text,
  $11::text,
  'PENDING',
  $12::text,
  now(),
  now()
) returning created_at, updated_at;
`

const QSelectProjectByID = `--sql 0fa98128-663d-4b4b-bfd3-81bbb9e0382e
select
  id::text,
  user_id,
  title,
  brief,
  brand_name,
  primary_color,
  secondary_color,
  mood,
  duration_seconds,
  target_audience,
  product_image_url,
  status,
  cost_usd,
  outputs,
  storage_folder,
  error_message,
  created_at,
  updated_at
from projects
where id = $1::uuid
limit 1;
`

const QSelectProjectForUser = `--sql ecdec4ef-c62e-42e3-94d4-fee18c2ba3f3
select
  id::text,
  user_id,
  title,
  brief,
  brand_name,
  primary_color,
  secondary_color,
  mood,
  duration_seconds,
  target_audience,
  product_image_url,
  status,
  cost_usd,
  outputs,
  storage_folder,
  error_message,
  created_at,
  updated_at
from projects
where id = $1::uuid
  and user_id = $2::text
limit 1;
`

const QListProjectsByUser = `--sql e02053c5-861f-4735-ad11-76c2c7356426
select
  id::text,
  user_id,
  title,
  brief,
  brand_name,
  primary_color,
  secondary_color,
  mood,
  duration_seconds,
  target_audience,
  product_image_url,
  status,
  cost_usd,
  outputs,
  storage_folder,
  error_message,
  created_at,
  updated_at
from projects
where user_id = $1::text
order by created_at desc
limit $2::int offset $3::int;
`

const QUpdateProjectStatus = `--sql 11446942-81e8-4817-81fb-648704e34ed8
update projects
set status = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QFinishProject = `--sql 5247640c-0119-43d3-8b0e-56df0d72ea9e
update projects
set status = $2::text,
    cost_usd = cost_usd + $3::double precision,
    outputs = coalesce($4::jsonb, '{}'::jsonb),
    error_message = $5::text,
    updated_at = now()
where id = $1::uuid;
`

const QResetProject = `--sql 01855940-3493-43b7-9c63-43111543486a
update projects
set status = 'PENDING',
    outputs = '{}'::jsonb,
    error_message = '',
    updated_at = now()
where id = $1::uuid;
`

const QPurgeFailedProjects = `--sql b6c4dba7-9d81-4e94-9f3b-5768809831d9
delete from projects
where status = 'FAILED'
  and updated_at < $1::timestamptz;
`
